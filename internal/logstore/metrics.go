package logstore

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/roach88/spinlog/internal/logstore"

type metrics struct {
	inserted       metric.Int64Counter
	evicted        metric.Int64Counter
	listenerPanics metric.Int64Counter
}

// newMetrics builds the store instruments. A nil provider means the global
// one. Instrument creation failures degrade to no-op counters.
func newMetrics(mp metric.MeterProvider) *metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	m := &metrics{}
	var err error
	if m.inserted, err = meter.Int64Counter("spinlog.records.inserted",
		metric.WithDescription("Records inserted into the log"),
		metric.WithUnit("{record}")); err != nil {
		m.inserted = noop.Int64Counter{}
	}
	if m.evicted, err = meter.Int64Counter("spinlog.records.evicted",
		metric.WithDescription("Records dropped from the tail when the log is full"),
		metric.WithUnit("{record}")); err != nil {
		m.evicted = noop.Int64Counter{}
	}
	if m.listenerPanics, err = meter.Int64Counter("spinlog.listener.panics",
		metric.WithDescription("Listener invocations that panicked and were recovered"),
		metric.WithUnit("{call}")); err != nil {
		m.listenerPanics = noop.Int64Counter{}
	}
	return m
}

func (m *metrics) recordInsert(eventType string, evicted bool) {
	ctx := context.Background()
	m.inserted.Add(ctx, 1, metric.WithAttributes(attribute.String("type", eventType)))
	if evicted {
		m.evicted.Add(ctx, 1)
	}
}

func (m *metrics) recordEvictions(n int) {
	if n > 0 {
		m.evicted.Add(context.Background(), int64(n))
	}
}

func (m *metrics) recordListenerPanic() {
	m.listenerPanics.Add(context.Background(), 1)
}
