package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/darkvj25/isopos/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS pos_collections (
	collection text PRIMARY KEY,
	records jsonb NOT NULL DEFAULT '[]'::jsonb,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

const upsert = `
	INSERT INTO pos_collections (collection, records, updated_at)
	VALUES ($1, $2::jsonb, now())
	ON CONFLICT (collection)
	DO UPDATE SET records = EXCLUDED.records, updated_at = EXCLUDED.updated_at
`

// Store keeps each collection as one jsonb array row, so a save replaces the
// whole set in a single statement.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Load(ctx context.Context, collection string) ([]json.RawMessage, error) {
	if !store.ValidCollection(collection) {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT records
		FROM pos_collections
		WHERE collection = $1
	`, collection).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUndefinedTable(err) {
			return []json.RawMessage{}, nil
		}
		return nil, err
	}

	records := make([]json.RawMessage, 0)
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return records, nil
}

func (s *Store) Save(ctx context.Context, collection string, records []json.RawMessage) error {
	return s.SaveAll(ctx, map[string][]json.RawMessage{collection: records})
}

func (s *Store) SaveAll(ctx context.Context, writes map[string][]json.RawMessage) error {
	names := make([]string, 0, len(writes))
	for collection := range writes {
		if !store.ValidCollection(collection) {
			return fmt.Errorf("%w: %s", store.ErrUnknownCollection, collection)
		}
		names = append(names, collection)
	}
	// Fixed row order keeps concurrent writers from deadlocking on each other.
	sort.Strings(names)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, collection := range names {
		payload, err := encodeArray(writes[collection])
		if err != nil {
			return fmt.Errorf("encode %s: %w", collection, err)
		}
		if _, err := tx.ExecContext(ctx, upsert, collection, payload); err != nil {
			return fmt.Errorf("save %s: %w", collection, err)
		}
	}

	return tx.Commit()
}

func encodeArray(records []json.RawMessage) (string, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return false
}
