package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	goredis "github.com/redis/go-redis/v9"

	"github.com/darkvj25/isopos/internal/store"
)

// Store keeps every collection as a JSON array under "<prefix>:<collection>".
type Store struct {
	client *goredis.Client
	prefix string
}

func New(addr string, password string, db int, prefix string) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(client, prefix)
}

func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = "isopos"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(collection string) string {
	return s.prefix + ":" + collection
}

func (s *Store) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	if !store.ValidCollection(collection) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
	}

	val, err := s.client.Get(ctx, s.key(collection)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	records := make([]json.RawMessage, 0)
	if err := json.Unmarshal(val, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return records, nil
}

func (s *Store) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	return s.SaveAll(ctx, map[string][]json.RawMessage{collection: records})
}

// SaveAll writes every collection inside one MULTI/EXEC block.
func (s *Store) SaveAll(ctx context.Context, writes map[string][]json.RawMessage) error {
	names := make([]string, 0, len(writes))
	payloads := make(map[string][]byte, len(writes))
	for collection, records := range writes {
		if !store.ValidCollection(collection) {
			return fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
		}
		if records == nil {
			records = []json.RawMessage{}
		}
		payload, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("encode %s: %w", collection, err)
		}
		names = append(names, collection)
		payloads[collection] = payload
	}
	sort.Strings(names)

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, collection := range names {
			pipe.Set(ctx, s.key(collection), payloads[collection], 0)
		}
		return nil
	})
	return err
}
