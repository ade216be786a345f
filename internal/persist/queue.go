package persist

import (
	"context"
	"sync"
)

// ChangeQueue is an unbounded, thread-safe FIFO of changes.
//
// Producers (backend delivery goroutines) never block on a slow consumer.
// The consumer drains with TryDequeue and parks on Wait:
//
//	for {
//	    for c, ok := q.TryDequeue(); ok; c, ok = q.TryDequeue() {
//	        handle(c)
//	    }
//	    select {
//	    case <-ctx.Done():
//	        return
//	    case <-q.Wait():
//	    }
//	}
type ChangeQueue struct {
	mu      sync.Mutex
	changes []Change
	closed  bool
	signal  chan struct{} // buffered, size 1; closed by Close
}

// NewChangeQueue creates an empty queue.
func NewChangeQueue() *ChangeQueue {
	return &ChangeQueue{
		changes: make([]Change, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends c. Returns false if the queue is closed.
func (q *ChangeQueue) Enqueue(c Change) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.changes = append(q.changes, c)

	// Non-blocking: a pending signal already covers this change.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front change without blocking.
func (q *ChangeQueue) TryDequeue() (Change, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.changes) == 0 {
		return Change{}, false
	}

	c := q.changes[0]
	// Release the value bytes held by the backing array.
	q.changes[0] = Change{}

	if len(q.changes) == 1 {
		q.changes = q.changes[:0]
	} else {
		q.changes = q.changes[1:]
	}

	return c, true
}

// Wait returns a channel that fires when changes may be available and is
// closed once the queue is closed.
func (q *ChangeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued changes.
func (q *ChangeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.changes)
}

// Close stops accepting changes and wakes the consumer.
func (q *ChangeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// forward moves queued changes to out in order until ctx is done or the
// queue is closed and drained, then closes out.
func forward(ctx context.Context, q *ChangeQueue, out chan<- Change) {
	defer close(out)
	for {
		for c, ok := q.TryDequeue(); ok; c, ok = q.TryDequeue() {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case _, open := <-q.Wait():
			if !open && q.Len() == 0 {
				return
			}
		}
	}
}
