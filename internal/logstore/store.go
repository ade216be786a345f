package logstore

import (
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"github.com/roach88/spinlog/internal/record"
)

// MaxEntries is the default number of records a Store retains.
const MaxEntries = 500

// Mirror receives the full newest-first history after every mutation.
// Implementations must not retain the slice past the call and must not call
// back into the Store. Failures are the mirror's own business: the Store
// never learns about them.
type Mirror interface {
	Mirror(records []record.Record)
}

// Store is the bounded spin debug log of one process context.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized, mirrored in order, and then announced through the Hub.
type Store struct {
	mu      sync.Mutex
	ring    *ring
	ids     *record.IDGenerator
	clock   Clock
	mirror  Mirror
	hub     *Hub
	logger  *slog.Logger
	metrics *metrics
}

type storeConfig struct {
	capacity      int
	ids           *record.IDGenerator
	clock         Clock
	mirror        Mirror
	logger        *slog.Logger
	meterProvider metric.MeterProvider
}

// Option configures a Store.
type Option func(*storeConfig)

// WithCapacity overrides MaxEntries. Values below 1 are ignored.
func WithCapacity(n int) Option {
	return func(c *storeConfig) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithIDGenerator replaces record.DefaultIDs.
func WithIDGenerator(g *record.IDGenerator) Option {
	return func(c *storeConfig) { c.ids = g }
}

// WithClock replaces the monotonic timestamp clock.
func WithClock(clock Clock) Option {
	return func(c *storeConfig) { c.clock = clock }
}

// WithMirror attaches the persistence hook.
func WithMirror(m Mirror) Option {
	return func(c *storeConfig) { c.mirror = m }
}

// WithLogger sets the logger used for store and listener diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *storeConfig) { c.logger = l }
}

// WithMeterProvider sets where store metrics are reported.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *storeConfig) { c.meterProvider = mp }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	cfg := storeConfig{capacity: MaxEntries}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ids == nil {
		cfg.ids = record.DefaultIDs
	}
	if cfg.clock == nil {
		cfg.clock = NewMonotonicClock()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	m := newMetrics(cfg.meterProvider)

	return &Store{
		ring:    newRing(cfg.capacity),
		ids:     cfg.ids,
		clock:   cfg.clock,
		mirror:  cfg.mirror,
		hub:     newHub(cfg.logger, m),
		logger:  cfg.logger.With("component", "logstore"),
		metrics: m,
	}
}

// Insert records e as the newest entry, evicting the oldest record when
// the store is full, then mirrors and notifies.
//
// The payload is never inspected; only a type outside the closed set is
// rejected (record.ErrUnknownType).
func (s *Store) Insert(e record.Entry) (record.Record, error) {
	if !e.Type.Valid() {
		return record.Record{}, fmt.Errorf("insert: %w: %q", record.ErrUnknownType, string(e.Type))
	}

	s.mu.Lock()
	rec := record.Record{
		ID:        s.ids.Next(),
		Type:      e.Type,
		Timestamp: s.clock.Now(),
		Data:      e.Data,
	}
	evicted := s.ring.push(rec)
	s.mirrorLocked()
	s.mu.Unlock()

	s.metrics.recordInsert(string(rec.Type), evicted)
	s.logger.Debug("log added",
		"id", rec.ID,
		"type", rec.Type,
		"evicted", evicted,
	)

	s.hub.NotifyAll()
	return rec, nil
}

// Snapshot returns a newest-first copy of the buffer.
// The slice is the caller's; changing it does not affect the store.
// Payloads are shared by reference and are treated as immutable.
func (s *Store) Snapshot() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.newestFirst()
}

// Clear empties the buffer, mirrors the empty history and notifies.
func (s *Store) Clear() {
	s.mu.Lock()
	s.ring.reset()
	s.mirrorLocked()
	s.mu.Unlock()

	s.logger.Debug("log cleared")
	s.hub.NotifyAll()
}

// Restore replaces the buffer with a newest-first history, keeping the most
// recent records that fit. The history came from persistence, so it is not
// mirrored back; listeners are notified.
func (s *Store) Restore(newestFirst []record.Record) {
	s.mu.Lock()
	dropped := s.ring.load(newestFirst)
	s.mu.Unlock()

	s.metrics.recordEvictions(dropped)
	s.logger.Debug("log restored",
		"records", len(newestFirst)-dropped,
		"dropped", dropped,
	)
	s.hub.NotifyAll()
}

// Subscribe registers a listener called after every mutation.
// See Hub.Subscribe for the unsubscribe contract.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	return s.hub.Subscribe(l)
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.len()
}

// Capacity returns the maximum number of retained records.
func (s *Store) Capacity() int {
	return s.ring.capacity()
}

// mirrorLocked hands the current history to the mirror. Must hold s.mu so
// the mirror observes mutations in the order they were applied.
func (s *Store) mirrorLocked() {
	if s.mirror == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("mirror panicked", "panic", fmt.Sprint(r))
		}
	}()
	s.mirror.Mirror(s.ring.newestFirst())
}
