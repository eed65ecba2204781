package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/darkvj25/isopos/internal/catalog"
	"github.com/darkvj25/isopos/internal/domain"
	"github.com/darkvj25/isopos/internal/ledger"
	"github.com/darkvj25/isopos/internal/store"
)

const DefaultLowStockThreshold = 10

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is one store instance: the catalog, both ledgers and the business
// settings, persisted through a single adapter. Every mutation holds the
// write lock across the in-memory change and the adapter save.
type Service struct {
	mu          sync.RWMutex
	adapter     store.Adapter
	catalog     *catalog.Catalog
	sales       *ledger.Sales
	adjustments *ledger.Adjustments
	settings    domain.BusinessSettings
	closed      bool

	now               func() time.Time
	loc               *time.Location
	lowStockThreshold int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone that defines a business day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLowStockThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.lowStockThreshold = threshold
		}
	}
}

// Open loads every collection from the adapter. A collection that was never
// saved starts empty; missing settings fall back to the defaults.
func Open(ctx context.Context, adapter store.Adapter, opts ...Option) (*Service, error) {
	s := &Service{
		adapter:           adapter,
		now:               func() time.Time { return time.Now().UTC() },
		loc:               time.Local,
		lowStockThreshold: DefaultLowStockThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}

	products, err := load[domain.Product](ctx, adapter, store.CollectionProducts)
	if err != nil {
		return nil, err
	}
	s.catalog, err = catalog.FromProducts(products, s.now)
	if err != nil {
		return nil, err
	}

	sales, err := load[domain.Sale](ctx, adapter, store.CollectionSales)
	if err != nil {
		return nil, err
	}
	s.sales, err = ledger.NewSales(sales)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIOFailure, err)
	}

	adjustments, err := load[domain.StockAdjustment](ctx, adapter, store.CollectionStockAdjustments)
	if err != nil {
		return nil, err
	}
	s.adjustments = ledger.NewAdjustments(adjustments)

	settings, err := load[domain.BusinessSettings](ctx, adapter, store.CollectionSettings)
	if err != nil {
		return nil, err
	}
	s.settings = domain.DefaultSettings()
	if len(settings) > 0 {
		s.settings = settings[len(settings)-1]
	}

	return s, nil
}

// Close stops the service from accepting mutations. Reads keep working on
// the last state. The adapter is owned and closed by the caller.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) Now() time.Time {
	return s.now()
}

func load[T any](ctx context.Context, adapter store.Adapter, collection string) ([]T, error) {
	records, err := adapter.Load(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", domain.ErrIOFailure, collection, err)
	}
	values, err := store.Decode[T](records)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrIOFailure, collection, err)
	}
	return values, nil
}

// persist writes the current in-memory state of the named collections in one
// SaveAll. The caller holds the write lock.
func (s *Service) persist(ctx context.Context, collections ...string) error {
	writes := make(map[string][]json.RawMessage, len(collections))
	for _, collection := range collections {
		var (
			records []json.RawMessage
			err     error
		)
		switch collection {
		case store.CollectionProducts:
			records, err = store.Encode(s.catalog.Products())
		case store.CollectionSales:
			records, err = store.Encode(s.sales.All())
		case store.CollectionStockAdjustments:
			records, err = store.Encode(s.adjustments.All())
		case store.CollectionSettings:
			records, err = store.Encode([]domain.BusinessSettings{s.settings})
		default:
			err = fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
		}
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", domain.ErrIOFailure, collection, err)
		}
		writes[collection] = records
	}

	if err := s.adapter.SaveAll(ctx, writes); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIOFailure, err)
	}
	return nil
}

func (s *Service) lockWrite() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrClosed
	}
	return nil
}
