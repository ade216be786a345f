package persist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/roach88/spinlog/internal/record"
)

// DefaultTimeout bounds a single mirror write.
const DefaultTimeout = 2 * time.Second

// Bridge mirrors a store's history into a Slot and reads it back.
// It satisfies logstore.Mirror.
//
// Thread-safety: safe for concurrent use if the Slot is.
type Bridge struct {
	slot    Slot
	key     string
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithKey overrides DefaultKey.
func WithKey(key string) BridgeOption {
	return func(b *Bridge) {
		if key != "" {
			b.key = key
		}
	}
}

// WithTimeout overrides DefaultTimeout for mirror writes.
func WithTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBridgeLogger sets the logger for swallowed failures.
func WithBridgeLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBridgeMeterProvider sets where failure counters are reported.
func WithBridgeMeterProvider(mp metric.MeterProvider) BridgeOption {
	return func(b *Bridge) { b.metrics = newMetrics(mp) }
}

// NewBridge creates a bridge over slot.
func NewBridge(slot Slot, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		slot:    slot,
		key:     DefaultKey,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = newMetrics(nil)
	}
	b.logger = b.logger.With("component", "persist", "key", b.key)
	return b
}

// Key returns the slot key this bridge mirrors to.
func (b *Bridge) Key() string {
	return b.key
}

// Mirror writes records to the slot. Serialization and write failures are
// logged and dropped; the in-memory history stays authoritative.
func (b *Bridge) Mirror(records []record.Record) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.persistFailed("panic")
			b.logger.Warn("mirror panicked", "panic", fmt.Sprint(r))
		}
	}()

	data, err := record.MarshalSequence(records)
	if err != nil {
		b.metrics.persistFailed("marshal")
		b.logger.Debug("mirror skipped: history not serializable", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.slot.Set(ctx, b.key, data); err != nil {
		b.metrics.persistFailed("write")
		b.logger.Debug("mirror write failed", "error", err)
	}
}

// Hydrate reads the persisted history, newest first. An absent, unreadable
// or malformed slot yields an empty history.
func (b *Bridge) Hydrate(ctx context.Context) (records []record.Record) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.hydrateFailed("panic")
			b.logger.Warn("hydrate panicked", "panic", fmt.Sprint(r))
			records = []record.Record{}
		}
	}()

	data, ok, err := b.slot.Get(ctx, b.key)
	if err != nil {
		b.metrics.hydrateFailed("read")
		b.logger.Debug("hydrate read failed", "error", err)
		return []record.Record{}
	}
	if !ok {
		return []record.Record{}
	}
	return b.Decode(data)
}

// Decode parses a serialized history the way Hydrate does: malformed data
// yields an empty history. Use record.DecodeSequence to tell the cases
// apart.
func (b *Bridge) Decode(data []byte) []record.Record {
	records, err := record.DecodeSequence(data)
	if err != nil {
		b.metrics.hydrateFailed("decode")
		b.logger.Debug("persisted history unusable", "error", err)
		return []record.Record{}
	}
	return records
}

// Reconcile picks the richer of two candidate histories: inMemory when it
// holds at least as many records as persisted, persisted otherwise.
func Reconcile(inMemory, persisted []record.Record) []record.Record {
	if len(inMemory) >= len(persisted) {
		return inMemory
	}
	return persisted
}
