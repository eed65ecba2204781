package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/store"
	"github.com/darkvj25/isopos/internal/xid"
)

// AdjustStock records a manual stock change. A removal larger than the
// available stock fails; it is never clamped to zero.
func (s *Service) AdjustStock(ctx context.Context, productID string, quantity int, adjType domain.AdjustmentType, reason string, actor domain.Actor) (domain.StockAdjustment, error) {
	if quantity <= 0 {
		return domain.StockAdjustment{}, fmt.Errorf("%w: %d", domain.ErrInvalidQuantity, quantity)
	}
	if !adjType.Valid() {
		return domain.StockAdjustment{}, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidAdjustment, adjType)
	}

	if err := s.lockWrite(); err != nil {
		return domain.StockAdjustment{}, err
	}
	defer s.mu.Unlock()

	delta := quantity
	if adjType == domain.AdjustmentRemove {
		delta = -quantity
	}

	before, err := s.catalog.Find(productID)
	if err != nil {
		return domain.StockAdjustment{}, err
	}
	snapshot := s.catalog.Clone()
	after, err := s.catalog.MutateStock(productID, delta)
	if err != nil {
		return domain.StockAdjustment{}, err
	}

	adj := domain.StockAdjustment{
		ID:          xid.New("adj"),
		ProductID:   after.ID,
		ProductName: after.Name,
		Type:        adjType,
		Quantity:    quantity,
		Reason:      strings.TrimSpace(reason),
		ActorID:     actor.ID,
		StockBefore: before.Stock,
		StockAfter:  after.Stock,
		CreatedAt:   s.now(),
	}

	mark := s.adjustments.Len()
	s.adjustments.Append(adj)
	if err := s.persist(ctx, store.CollectionProducts, store.CollectionStockAdjustments); err != nil {
		s.adjustments.Truncate(mark)
		s.catalog = snapshot
		return domain.StockAdjustment{}, err
	}
	return adj, nil
}

func (s *Service) StockAdjustments(_ context.Context) []domain.StockAdjustment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adjustments.All()
}

func (s *Service) StockAdjustmentsForProduct(_ context.Context, productID string) []domain.StockAdjustment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adjustments.ForProduct(productID)
}
