package logstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/spinlog/internal/record"
)

func ids(records []record.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestRing_PushWrapsAround(t *testing.T) {
	r := newRing(3)

	assert.False(t, r.push(record.Record{ID: "a"}))
	assert.False(t, r.push(record.Record{ID: "b"}))
	assert.False(t, r.push(record.Record{ID: "c"}))
	assert.True(t, r.push(record.Record{ID: "d"}))
	assert.True(t, r.push(record.Record{ID: "e"}))

	assert.Equal(t, []string{"e", "d", "c"}, ids(r.newestFirst()))
	assert.Equal(t, 3, r.len())
}

func TestRing_Reset(t *testing.T) {
	r := newRing(2)
	r.push(record.Record{ID: "a", Data: "payload"})

	r.reset()

	assert.Empty(t, r.newestFirst())
	for _, slot := range r.slots {
		assert.Nil(t, slot.Data)
	}
}

func TestRing_Load(t *testing.T) {
	r := newRing(3)
	r.push(record.Record{ID: "old"})

	dropped := r.load([]record.Record{{ID: "z"}, {ID: "y"}, {ID: "x"}, {ID: "w"}})

	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"z", "y", "x"}, ids(r.newestFirst()))

	r.push(record.Record{ID: "new"})
	assert.Equal(t, []string{"new", "z", "y"}, ids(r.newestFirst()))
}

func TestRing_LoadEmpty(t *testing.T) {
	r := newRing(3)
	r.push(record.Record{ID: "a"})

	assert.Equal(t, 0, r.load(nil))
	assert.Equal(t, 0, r.len())
}
