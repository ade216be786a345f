package persist

import (
	"context"
	"sync"
)

// MemoryBus is an in-process durable medium shared by several contexts,
// the way browser tabs share one origin's local storage.
//
// Thread-safety: safe for concurrent use.
type MemoryBus struct {
	mu       sync.Mutex
	values   map[string][]byte
	watchers map[uint64]*memoryWatcher
	nextID   uint64
}

type memoryWatcher struct {
	origin string
	key    string
	queue  *ChangeQueue
}

// NewMemoryBus creates an empty medium.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		values:   make(map[string][]byte),
		watchers: make(map[uint64]*memoryWatcher),
	}
}

// Open attaches a new context to the bus with a fresh origin.
func (b *MemoryBus) Open() *MemorySlot {
	return &MemorySlot{bus: b, origin: NewOrigin()}
}

func (b *MemoryBus) get(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

func (b *MemoryBus) set(origin, key string, value []byte) {
	stored := append([]byte(nil), value...)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = stored
	for _, w := range b.watchers {
		if w.key != key || w.origin == origin {
			continue
		}
		w.queue.Enqueue(Change{
			Key:      key,
			Value:    append([]byte(nil), stored...),
			HasValue: true,
			Origin:   origin,
		})
	}
}

func (b *MemoryBus) addWatcher(w *memoryWatcher) (remove func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.watchers[id] = w
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.watchers, id)
		b.mu.Unlock()
		w.queue.Close()
	}
}

// MemorySlot is one context's handle on a MemoryBus.
type MemorySlot struct {
	bus    *MemoryBus
	origin string

	mu     sync.Mutex
	closed bool
}

// Origin returns this context's id.
func (s *MemorySlot) Origin() string {
	return s.origin
}

func (s *MemorySlot) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Get returns the current value of key.
func (s *MemorySlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.isClosed() {
		return nil, false, ErrSlotClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := s.bus.get(key)
	return v, ok, nil
}

// Set overwrites key and notifies every other context watching it.
func (s *MemorySlot) Set(ctx context.Context, key string, value []byte) error {
	if s.isClosed() {
		return ErrSlotClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.bus.set(s.origin, key, value)
	return nil
}

// Watch reports writes to key made through other slots of the bus.
// Delivery is asynchronous and in write order.
func (s *MemorySlot) Watch(ctx context.Context, key string) (<-chan Change, error) {
	if s.isClosed() {
		return nil, ErrSlotClosed
	}
	w := &memoryWatcher{origin: s.origin, key: key, queue: NewChangeQueue()}
	remove := s.bus.addWatcher(w)

	out := make(chan Change)
	go func() {
		defer remove()
		forward(ctx, w.queue, out)
	}()
	return out, nil
}

// Close detaches the slot. The bus and its values stay intact.
func (s *MemorySlot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
