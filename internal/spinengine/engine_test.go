package spinengine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinlog/internal/logstore"
	"github.com/roach88/spinlog/internal/overlap"
	"github.com/roach88/spinlog/internal/record"
)

func TestSpinToResult(t *testing.T) {
	store := logstore.New()
	e := New(store)

	require.NoError(t, e.SpinToResult("42"))

	snap := store.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, record.TypeSpinComplete, snap[0].Type)
	assert.Equal(t, map[string]any{"note": "no rotation, completed instantly"}, snap[0].Data)
	assert.Equal(t, record.TypeSpinRequest, snap[1].Type)
	assert.Equal(t, map[string]any{"resultNumber": "42", "note": "rotation disabled"}, snap[1].Data)

	w1, w2 := e.Rotations()
	assert.Zero(t, w1)
	assert.Zero(t, w2)
}

func TestSpinToResult_NeverOverlaps(t *testing.T) {
	store := logstore.New()
	e := New(store)

	for _, r := range []string{"07", "13", "99"} {
		require.NoError(t, e.SpinToResult(r))
	}
	assert.Equal(t, 0, overlap.Classify(store.Snapshot()).Len())
}

func TestReset(t *testing.T) {
	store := logstore.New()
	e := New(store)

	require.NoError(t, e.Reset())

	snap := store.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, record.TypeReset, snap[0].Type)
	assert.Equal(t, map[string]any{"reason": "rotation disabled"}, snap[0].Data)
}

type brokenSink struct{}

func (brokenSink) Insert(record.Entry) (record.Record, error) {
	return record.Record{}, errors.New("sink down")
}

func TestEngine_SinkErrors(t *testing.T) {
	e := New(brokenSink{})

	err := e.SpinToResult("5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spin to 5")

	err = e.Reset()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset")
}
