package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/store"
	"github.com/darkvj25/isopos/internal/xid"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string][]json.RawMessage
}

func New() *Store {
	return &Store{collections: make(map[string][]json.RawMessage)}
}

// NewSeeded returns a store whose products collection holds a small sari-sari
// store catalog, for demos and local development.
func NewSeeded() *Store {
	now := time.Now().UTC()
	seed := []struct {
		name     string
		category string
		price    int64
		cost     int64
		stock    int
		barcode  string
	}{
		{"Coca-Cola 350ml", "Beverages", 25, 18, 50, "4902102119825"},
		{"Lucky Me Pancit Canton", "Instant Noodles", 15, 11, 100, "4806516440119"},
		{"Skyflakes Crackers", "Snacks", 35, 25, 30, "4800016005039"},
		{"Maggi Magic Sarap 8g", "Condiments", 8, 6, 80, "4800024112059"},
		{"Tanduay Ice", "Beverages", 45, 32, 25, "4800012050016"},
	}

	products := make([]domain.Product, 0, len(seed))
	for _, p := range seed {
		products = append(products, domain.Product{
			ID:        xid.New("prd"),
			Name:      p.name,
			Category:  p.category,
			Price:     decimal.NewFromInt(p.price),
			Cost:      decimal.NewFromInt(p.cost),
			Stock:     p.stock,
			Barcode:   p.barcode,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	records, err := store.Encode(products)
	if err != nil {
		panic(fmt.Sprintf("memory: encode seed catalog: %v", err))
	}
	s := New()
	s.collections[store.CollectionProducts] = records
	return s
}

func (s *Store) Load(_ context.Context, collection string) ([]json.RawMessage, error) {
	if !store.ValidCollection(collection) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.CloneRecords(s.collections[collection]), nil
}

func (s *Store) Save(_ context.Context, collection string, records []json.RawMessage) error {
	if !store.ValidCollection(collection) {
		return fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = store.CloneRecords(records)
	return nil
}

func (s *Store) SaveAll(_ context.Context, writes map[string][]json.RawMessage) error {
	for collection := range writes {
		if !store.ValidCollection(collection) {
			return fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for collection, records := range writes {
		s.collections[collection] = store.CloneRecords(records)
	}
	return nil
}
