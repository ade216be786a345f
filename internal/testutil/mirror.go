package testutil

import (
	"sync"

	"github.com/roach88/spinlog/internal/record"
)

// RecordingMirror captures every history a store mirrors.
//
// Satisfies logstore.Mirror. Each captured history is a private copy.
//
// Thread-safety: safe for concurrent use.
type RecordingMirror struct {
	mu      sync.Mutex
	history [][]record.Record
}

// Mirror records a copy of records.
func (m *RecordingMirror) Mirror(records []record.Record) {
	cp := make([]record.Record, len(records))
	copy(cp, records)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, cp)
}

// Calls returns how many times Mirror was called.
func (m *RecordingMirror) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Last returns the most recently mirrored history, or nil if none.
func (m *RecordingMirror) Last() []record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return nil
	}
	return m.history[len(m.history)-1]
}

// Counter is a listener that counts its invocations.
//
// Thread-safety: safe for concurrent use.
type Counter struct {
	mu sync.Mutex
	n  int
}

// Inc is the listener func.
func (c *Counter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

// Count returns the number of invocations so far.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
