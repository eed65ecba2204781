// Package store defines the persistence adapter the service saves through.
// An adapter stores whole collections of JSON records; it knows nothing about
// products or sales.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

const (
	CollectionProducts         = "products"
	CollectionSales            = "sales"
	CollectionSettings         = "settings"
	CollectionStockAdjustments = "stock_adjustments"
)

var ErrUnknownCollection = errors.New("unknown collection")

type Adapter interface {
	// Load returns an empty slice for a collection that was never saved.
	Load(ctx context.Context, collection string) ([]json.RawMessage, error)
	// Save replaces the collection's full record set.
	Save(ctx context.Context, collection string, records []json.RawMessage) error
	// SaveAll replaces several collections atomically: either every write
	// lands or none does.
	SaveAll(ctx context.Context, writes map[string][]json.RawMessage) error
}

func Collections() []string {
	return []string{CollectionProducts, CollectionSales, CollectionSettings, CollectionStockAdjustments}
}

func ValidCollection(name string) bool {
	switch name {
	case CollectionProducts, CollectionSales, CollectionSettings, CollectionStockAdjustments:
		return true
	}
	return false
}

// Encode marshals each value into its own record.
func Encode[T any](values []T) ([]json.RawMessage, error) {
	records := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		records = append(records, raw)
	}
	return records, nil
}

func Decode[T any](records []json.RawMessage) ([]T, error) {
	values := make([]T, 0, len(records))
	for _, raw := range records {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// CloneRecords deep-copies a record set so callers never share buffers.
func CloneRecords(records []json.RawMessage) []json.RawMessage {
	dup := make([]json.RawMessage, len(records))
	for i, raw := range records {
		dup[i] = append(json.RawMessage(nil), raw...)
	}
	return dup
}
