package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkvj25/isopos/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("ISOPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set ISOPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	require.NoError(t, s.EnsureSchema(ctx))
	_, err = s.db.ExecContext(ctx, `DELETE FROM pos_collections`)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM pos_collections`)
	})
	return s
}

func TestSaveAllRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	empty, err := s.Load(ctx, store.CollectionSales)
	require.NoError(t, err)
	assert.Empty(t, empty)

	err = s.SaveAll(ctx, map[string][]json.RawMessage{
		store.CollectionProducts: {json.RawMessage(`{"id":"prd-1","stock":49}`)},
		store.CollectionSales:    {json.RawMessage(`{"id":"sal-1","receipt_seq":1}`)},
	})
	require.NoError(t, err)

	products, err := s.Load(ctx, store.CollectionProducts)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.JSONEq(t, `{"id":"prd-1","stock":49}`, string(products[0]))

	require.NoError(t, s.Save(ctx, store.CollectionProducts, nil))
	products, err = s.Load(ctx, store.CollectionProducts)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestSaveAllRejectsUnknownCollection(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.SaveAll(ctx, map[string][]json.RawMessage{
		store.CollectionSales: {json.RawMessage(`{"id":"sal-1"}`)},
		"users":               {json.RawMessage(`{}`)},
	})
	require.ErrorIs(t, err, store.ErrUnknownCollection)

	sales, err := s.Load(ctx, store.CollectionSales)
	require.NoError(t, err)
	assert.Empty(t, sales, "nothing written when one collection is unknown")
}
