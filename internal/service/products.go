package service

import (
	"context"

	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/store"
)

func (s *Service) AddProduct(ctx context.Context, draft domain.ProductDraft) (domain.Product, error) {
	if err := s.lockWrite(); err != nil {
		return domain.Product{}, err
	}
	defer s.mu.Unlock()

	before := s.catalog.Clone()
	product, err := s.catalog.Add(draft)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.persist(ctx, store.CollectionProducts); err != nil {
		s.catalog = before
		return domain.Product{}, err
	}
	return product, nil
}

// UpdateProduct edits descriptive fields and price. Stock is not editable here.
func (s *Service) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (domain.Product, error) {
	if err := s.lockWrite(); err != nil {
		return domain.Product{}, err
	}
	defer s.mu.Unlock()

	before := s.catalog.Clone()
	product, err := s.catalog.Update(id, upd)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.persist(ctx, store.CollectionProducts); err != nil {
		s.catalog = before
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.lockWrite(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	before := s.catalog.Clone()
	if _, err := s.catalog.Delete(id); err != nil {
		return err
	}
	if err := s.persist(ctx, store.CollectionProducts); err != nil {
		s.catalog = before
		return err
	}
	return nil
}

// FindProduct also makes the service a cart.ProductSource.
func (s *Service) FindProduct(_ context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Find(id)
}

func (s *Service) FindProductByBarcode(_ context.Context, code string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.FindByBarcode(code)
}

func (s *Service) SearchProducts(_ context.Context, query string) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Search(query)
}

func (s *Service) Products(_ context.Context) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.Products()
}

// LowStockProducts uses the configured threshold when threshold <= 0.
func (s *Service) LowStockProducts(_ context.Context, threshold int) []domain.Product {
	if threshold <= 0 {
		threshold = s.lowStockThreshold
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.LowStock(threshold)
}

func (s *Service) OutOfStockProducts(_ context.Context) []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog.OutOfStock()
}
