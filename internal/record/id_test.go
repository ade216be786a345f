package record

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerator_Format(t *testing.T) {
	wall := time.UnixMilli(1700000000123)
	g := NewIDGenerator(func() time.Time { return wall })

	assert.Equal(t, "spin-1700000000123-1", g.Next())
	assert.Equal(t, "spin-1700000000123-2", g.Next())
	assert.Equal(t, int64(2), g.Issued())
}

func TestIDGenerator_UniqueWithinSameMillisecond(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	g := NewIDGenerator(func() time.Time { return frozen })

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := g.Next()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, 1000)
}

func TestIDGenerator_ConcurrentUse(t *testing.T) {
	g := NewIDGenerator(nil)

	const workers = 8
	const perWorker = 250

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := g.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestDefaultIDs_Prefix(t *testing.T) {
	id := DefaultIDs.Next()
	assert.True(t, strings.HasPrefix(id, "spin-"), id)
}
