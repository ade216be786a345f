// Package monitor is the read side of the spin debug log: it holds the
// history a viewer shows, keeps it current from the local store and from
// other contexts, and flags overlapping requests on every read.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/spinlog/internal/logstore"
	"github.com/roach88/spinlog/internal/overlap"
	"github.com/roach88/spinlog/internal/persist"
	"github.com/roach88/spinlog/internal/record"
)

// Row is a record as shown to a viewer.
type Row struct {
	record.Record
	Overlapping bool `json:"overlapping"`
}

// Monitor tracks the viewed history.
//
// Thread-safety: all methods are safe for concurrent use. Listeners run
// synchronously after the history changes.
type Monitor struct {
	store  *logstore.Store
	bridge *persist.Bridge
	hub    *logstore.Hub
	logger *slog.Logger

	mu          sync.Mutex
	entries     []record.Record
	unsubscribe func()
}

// New creates a monitor over store and its persistence bridge.
func New(store *logstore.Store, bridge *persist.Bridge, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		store:   store,
		bridge:  bridge,
		hub:     logstore.NewHub(logger),
		logger:  logger.With("component", "monitor"),
		entries: []record.Record{},
	}
}

// Start loads the richer of the in-memory and persisted histories and
// follows the store from then on. Calling Start again reloads.
func (m *Monitor) Start(ctx context.Context) {
	initial := m.reconciled(ctx)

	m.mu.Lock()
	m.entries = initial
	if m.unsubscribe == nil {
		m.unsubscribe = m.store.Subscribe(m.refresh)
	}
	m.mu.Unlock()

	m.logger.Debug("monitor started", "records", len(initial))
	m.hub.NotifyAll()
}

// Stop detaches from the store. Entries keep their last value.
func (m *Monitor) Stop() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// refresh holds m.mu across the snapshot so concurrent notifications
// install snapshots in store order.
func (m *Monitor) refresh() {
	m.mu.Lock()
	m.entries = m.store.Snapshot()
	m.mu.Unlock()

	m.hub.NotifyAll()
}

// Replace swaps the viewed history, e.g. with one written by another
// context, and notifies subscribers. Records past the store capacity are
// dropped. Suitable as a crosssync.Applier.
func (m *Monitor) Replace(newestFirst []record.Record) {
	newestFirst = m.bounded(newestFirst)
	m.mu.Lock()
	m.entries = newestFirst
	m.mu.Unlock()

	m.hub.NotifyAll()
}

// Entries returns a newest-first copy of the viewed history.
func (m *Monitor) Entries() []record.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// Overlaps classifies the viewed history.
func (m *Monitor) Overlaps() overlap.Set {
	m.mu.Lock()
	defer m.mu.Unlock()
	return overlap.Classify(m.entries)
}

// Rows returns the viewed history with overlapping requests flagged.
func (m *Monitor) Rows() []Row {
	m.mu.Lock()
	entries := slices.Clone(m.entries)
	m.mu.Unlock()

	flagged := overlap.Classify(entries)
	rows := make([]Row, len(entries))
	for i, rec := range entries {
		rows[i] = Row{Record: rec, Overlapping: flagged.Contains(rec.ID)}
	}
	return rows
}

// Export renders the richer of the store's and the slot's histories as
// indented JSON, the format used for copying the whole log.
func (m *Monitor) Export(ctx context.Context) ([]byte, error) {
	records := m.reconciled(ctx)
	data, err := record.MarshalSequenceIndent(records)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// Subscribe registers a listener called after the viewed history changes.
func (m *Monitor) Subscribe(l logstore.Listener) (unsubscribe func()) {
	return m.hub.Subscribe(l)
}

// reconciled picks the richer of the store's and the slot's histories,
// bounded to the store capacity.
func (m *Monitor) reconciled(ctx context.Context) []record.Record {
	return m.bounded(persist.Reconcile(m.store.Snapshot(), m.bridge.Hydrate(ctx)))
}

// bounded keeps the newest store.Capacity() records. A nil history becomes
// empty.
func (m *Monitor) bounded(newestFirst []record.Record) []record.Record {
	if newestFirst == nil {
		return []record.Record{}
	}
	if n := m.store.Capacity(); len(newestFirst) > n {
		return newestFirst[:n:n]
	}
	return newestFirst
}
