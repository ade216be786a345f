package persist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeQueue_EnqueueDequeue(t *testing.T) {
	q := NewChangeQueue()

	ok := q.Enqueue(Change{Key: "k", Origin: "tab-1"})
	require.True(t, ok, "enqueue should succeed")

	got, ok := q.TryDequeue()
	require.True(t, ok, "dequeue should succeed")
	assert.Equal(t, "tab-1", got.Origin)
}

func TestChangeQueue_FIFO(t *testing.T) {
	q := NewChangeQueue()

	for _, origin := range []string{"A", "B", "C"} {
		q.Enqueue(Change{Origin: origin})
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		c, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, c.Origin)
	}
	assert.Equal(t, 0, q.Len())
}

func TestChangeQueue_TryDequeue_Empty(t *testing.T) {
	q := NewChangeQueue()

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestChangeQueue_EnqueueAfterClose(t *testing.T) {
	q := NewChangeQueue()
	q.Close()
	q.Close() // second close is a no-op

	assert.False(t, q.Enqueue(Change{Key: "k"}))

	_, open := <-q.Wait()
	assert.False(t, open, "wait channel should be closed")
}

func TestChangeQueue_WaitSignalsAvailability(t *testing.T) {
	q := NewChangeQueue()
	q.Enqueue(Change{Key: "k"})

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("expected signal after enqueue")
	}
}

func TestChangeQueue_ConcurrentProducers(t *testing.T) {
	q := NewChangeQueue()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(Change{Key: "k"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
}

func TestForward_DeliversInOrderAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewChangeQueue()
	out := make(chan Change)
	go forward(ctx, q, out)

	for _, origin := range []string{"A", "B", "C"} {
		q.Enqueue(Change{Origin: origin})
	}
	for _, want := range []string{"A", "B", "C"} {
		select {
		case c := <-out:
			assert.Equal(t, want, c.Origin)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	cancel()
	select {
	case _, open := <-out:
		assert.False(t, open, "out should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("forward did not stop")
	}
}

func TestForward_DrainsThenClosesWhenQueueCloses(t *testing.T) {
	q := NewChangeQueue()
	q.Enqueue(Change{Origin: "last"})
	q.Close()

	out := make(chan Change)
	go forward(context.Background(), q, out)

	c, open := <-out
	require.True(t, open)
	assert.Equal(t, "last", c.Origin)

	_, open = <-out
	assert.False(t, open)
}

func TestChannelIdent(t *testing.T) {
	assert.Equal(t, "spinlog_spin_debug_logs", channelIdent("spin-debug-logs"))
	assert.Equal(t, "spinlog_a_b", channelIdent("--A..B--"))
}
