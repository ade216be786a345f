package crosssync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinlog/internal/logstore"
	"github.com/roach88/spinlog/internal/persist"
	"github.com/roach88/spinlog/internal/record"
	"github.com/roach88/spinlog/internal/testutil"
)

// applied collects every history handed to the applier.
type applied struct {
	ch chan []record.Record
}

func newApplied() *applied {
	return &applied{ch: make(chan []record.Record, 16)}
}

func (a *applied) apply(records []record.Record) {
	a.ch <- records
}

func (a *applied) next(t *testing.T) []record.Record {
	t.Helper()
	select {
	case r := <-a.ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for apply")
		return nil
	}
}

// drain discards applies until none arrives for a short while.
func (a *applied) drain() {
	for {
		select {
		case <-a.ch:
		case <-time.After(100 * time.Millisecond):
			return
		}
	}
}

func (a *applied) quiet(t *testing.T) {
	t.Helper()
	select {
	case r := <-a.ch:
		t.Fatalf("unexpected apply of %d records", len(r))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandle_WellFormedValueApplied(t *testing.T) {
	slot := persist.NewMemoryBus().Open()
	got := newApplied()
	s := New(slot, persist.NewBridge(slot), got.apply)

	s.Handle(context.Background(), persist.Change{
		Key:      persist.DefaultKey,
		Value:    []byte(`[{"id":"spin-1-1","type":"RESET","timestamp":3}]`),
		HasValue: true,
		Origin:   "other",
	})

	assert.Equal(t, []record.Record{{ID: "spin-1-1", Type: record.TypeReset, Timestamp: 3}}, got.next(t))
}

func TestHandle_MalformedValueFallsBackToSlot(t *testing.T) {
	ctx := context.Background()
	slot := persist.NewMemoryBus().Open()
	bridge := persist.NewBridge(slot)
	bridge.Mirror([]record.Record{{ID: "stored", Type: record.TypeSpinRequest, Timestamp: 1}})

	got := newApplied()
	s := New(slot, bridge, got.apply)

	s.Handle(ctx, persist.Change{Key: persist.DefaultKey, Value: []byte(`{broken`), HasValue: true})

	records := got.next(t)
	require.Len(t, records, 1)
	assert.Equal(t, "stored", records[0].ID)
}

func TestHandle_NoValueRereadsSlot(t *testing.T) {
	slot := persist.NewMemoryBus().Open()
	got := newApplied()
	s := New(slot, persist.NewBridge(slot), got.apply)

	// Nothing stored: the re-read yields an empty history.
	s.Handle(context.Background(), persist.Change{Key: persist.DefaultKey})

	records := got.next(t)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestHandle_OtherKeyIgnored(t *testing.T) {
	slot := persist.NewMemoryBus().Open()
	got := newApplied()
	s := New(slot, persist.NewBridge(slot), got.apply)

	s.Handle(context.Background(), persist.Change{Key: "theme", Value: []byte(`[]`), HasValue: true})
	got.quiet(t)
}

func TestRun_PropagatesWritesFromOtherContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := persist.NewMemoryBus()
	writerSlot, readerSlot := bus.Open(), bus.Open()

	writer := logstore.New(
		logstore.WithMirror(persist.NewBridge(writerSlot)),
		logstore.WithIDGenerator(record.NewIDGenerator(testutil.FixedWall(1700000000000))),
		logstore.WithClock(testutil.NewDeterministicClock()),
	)

	got := newApplied()
	s := New(readerSlot, persist.NewBridge(readerSlot), got.apply)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Watch is registered asynchronously; wait until the reader sees writes.
	require.Eventually(t, func() bool {
		if _, err := writer.Insert(record.Entry{Type: record.TypeSpinRequest}); err != nil {
			return false
		}
		select {
		case <-got.ch:
			return true
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
	got.drain()

	_, err := writer.Insert(record.Entry{Type: record.TypeSpinComplete})
	require.NoError(t, err)
	assert.Equal(t, writer.Snapshot(), got.next(t))

	writer.Clear()
	assert.Empty(t, got.next(t))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_OwnWritesDoNotSync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slot := persist.NewMemoryBus().Open()
	bridge := persist.NewBridge(slot)
	store := logstore.New(logstore.WithMirror(bridge))

	got := newApplied()
	s := New(slot, bridge, got.apply)
	go s.Run(ctx)

	for i := 0; i < 3; i++ {
		_, err := store.Insert(record.Entry{Type: record.TypeSpinRequest})
		require.NoError(t, err)
	}
	got.quiet(t)
}

type failingFeed struct{}

func (failingFeed) Watch(context.Context, string) (<-chan persist.Change, error) {
	return nil, errors.New("listener unavailable")
}

func TestRun_WatchError(t *testing.T) {
	slot := persist.NewMemoryBus().Open()
	s := New(failingFeed{}, persist.NewBridge(slot), func([]record.Record) {})

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listener unavailable")
}

// closingFeed delivers its changes and then ends the stream.
type closingFeed struct {
	changes []persist.Change
}

func (f closingFeed) Watch(context.Context, string) (<-chan persist.Change, error) {
	ch := make(chan persist.Change, len(f.changes))
	for _, c := range f.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func TestRun_AppliesInOrderThenReturnsWhenFeedEnds(t *testing.T) {
	slot := persist.NewMemoryBus().Open()
	got := newApplied()
	feed := closingFeed{changes: []persist.Change{
		{Key: persist.DefaultKey, Value: []byte(`[{"id":"1","type":"RESET","timestamp":1}]`), HasValue: true},
		{Key: persist.DefaultKey, Value: []byte(`[{"id":"2","type":"RESET","timestamp":2}]`), HasValue: true},
	}}
	s := New(feed, persist.NewBridge(slot), got.apply)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, "1", got.next(t)[0].ID)
	assert.Equal(t, "2", got.next(t)[0].ID)
}
