package logstore

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Listener is a zero-argument change callback.
type Listener func()

// Hub is a set of listeners notified after every store mutation.
//
// Thread-safety: all methods are safe for concurrent use. Listeners run on
// the goroutine that calls NotifyAll, never while the hub lock is held, so
// a listener may subscribe or unsubscribe freely.
type Hub struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]Listener
	logger    *slog.Logger
	metrics   *metrics
}

// NewHub creates an empty hub that logs recovered listener panics to logger.
// A nil logger means slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	return newHub(logger, newMetrics(nil))
}

func newHub(logger *slog.Logger, m *metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		listeners: make(map[uint64]Listener),
		logger:    logger,
		metrics:   m,
	}
}

// Subscribe registers l and returns a function that removes exactly that
// registration. Calling the returned function more than once is a no-op.
// Registering the same func twice yields two independent registrations.
func (h *Hub) Subscribe(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[id] = l
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// NotifyAll calls every currently registered listener once.
// Listeners are called in registration order. A panicking listener is
// recovered and logged; the others still run.
func (h *Hub) NotifyAll() {
	for _, l := range h.snapshot() {
		h.call(l)
	}
}

// Len returns the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func (h *Hub) snapshot() []Listener {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]uint64, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = h.listeners[id]
	}
	return out
}

func (h *Hub) call(l Listener) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.recordListenerPanic()
			h.logger.Warn("log listener panicked",
				"panic", fmt.Sprint(r),
			)
		}
	}()
	l()
}
