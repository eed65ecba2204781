package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   string `json:"id"`
	Note string `json:"note"`
}

func TestEncodeDecode(t *testing.T) {
	in := []record{{ID: "a", Note: "first"}, {ID: "b"}}
	raw, err := Encode(in)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.JSONEq(t, `{"id":"a","note":"first"}`, string(raw[0]))

	out, err := Decode[record](raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Decode[record]([]json.RawMessage{json.RawMessage(`{`)})
	assert.Error(t, err)
}

func TestCloneRecordsCopiesBuffers(t *testing.T) {
	src := []json.RawMessage{json.RawMessage(`{"id":"a"}`)}
	dup := CloneRecords(src)
	dup[0][2] = 'X'
	assert.Equal(t, `{"id":"a"}`, string(src[0]))
}

func TestValidCollection(t *testing.T) {
	for _, name := range Collections() {
		assert.True(t, ValidCollection(name), name)
	}
	assert.False(t, ValidCollection("users"))
}
