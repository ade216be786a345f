package record

import (
	"fmt"
	"sync/atomic"
	"time"
)

// IDGenerator hands out record ids of the form "spin-<unix-ms>-<n>".
//
// n comes from a strictly increasing counter, so two ids minted in the same
// millisecond still differ. The wall clock part only aids reading; it plays
// no role in uniqueness.
//
// Thread-safety: IDGenerator is safe for concurrent use (atomic counter).
type IDGenerator struct {
	seq  atomic.Int64
	wall func() time.Time
}

// DefaultIDs is the process-wide generator used by every store that is not
// given its own. Sharing it keeps ids unique across stores in one process.
var DefaultIDs = NewIDGenerator(time.Now)

// NewIDGenerator creates a generator reading wall time from wall.
// A nil wall falls back to time.Now.
func NewIDGenerator(wall func() time.Time) *IDGenerator {
	if wall == nil {
		wall = time.Now
	}
	return &IDGenerator{wall: wall}
}

// Next returns a fresh id. Calls are linearizable: the counter part of
// every returned id is unique.
func (g *IDGenerator) Next() string {
	n := g.seq.Add(1)
	return fmt.Sprintf("spin-%d-%d", g.wall().UnixMilli(), n)
}

// Issued returns how many ids have been handed out.
func (g *IDGenerator) Issued() int64 {
	return g.seq.Load()
}
