package logstore

import "github.com/roach88/spinlog/internal/record"

// ring is a fixed-capacity circular buffer of records.
// Not safe for concurrent use; Store guards it.
type ring struct {
	slots []record.Record
	next  int // slot the next push writes
	count int
}

func newRing(capacity int) *ring {
	return &ring{slots: make([]record.Record, capacity)}
}

// push stores r as the newest record and reports whether the oldest record
// was overwritten to make room.
func (r *ring) push(rec record.Record) (evicted bool) {
	evicted = r.count == len(r.slots)
	r.slots[r.next] = rec
	r.next = (r.next + 1) % len(r.slots)
	if !evicted {
		r.count++
	}
	return evicted
}

// newestFirst copies the buffer out, index 0 being the most recent record.
func (r *ring) newestFirst() []record.Record {
	out := make([]record.Record, r.count)
	n := len(r.slots)
	for i := 0; i < r.count; i++ {
		out[i] = r.slots[(r.next-1-i+n)%n]
	}
	return out
}

// reset empties the buffer and drops references held by the slots.
func (r *ring) reset() {
	for i := range r.slots {
		r.slots[i] = record.Record{}
	}
	r.next = 0
	r.count = 0
}

// load replaces the contents with a newest-first history, keeping at most
// capacity records. Returns how many records did not fit.
func (r *ring) load(newestFirst []record.Record) (dropped int) {
	r.reset()
	keep := newestFirst
	if len(keep) > len(r.slots) {
		dropped = len(keep) - len(r.slots)
		keep = keep[:len(r.slots)]
	}
	for i := len(keep) - 1; i >= 0; i-- {
		r.push(keep[i])
	}
	return dropped
}

func (r *ring) len() int { return r.count }

func (r *ring) capacity() int { return len(r.slots) }
