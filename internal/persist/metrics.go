package persist

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/roach88/spinlog/internal/persist"

type metrics struct {
	persistFailures metric.Int64Counter
	hydrateFailures metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) *metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	m := &metrics{}
	var err error
	if m.persistFailures, err = meter.Int64Counter("spinlog.persist.failures",
		metric.WithDescription("Mirror writes that were dropped"),
		metric.WithUnit("{write}")); err != nil {
		m.persistFailures = noop.Int64Counter{}
	}
	if m.hydrateFailures, err = meter.Int64Counter("spinlog.hydrate.failures",
		metric.WithDescription("Slot reads that yielded no usable history"),
		metric.WithUnit("{read}")); err != nil {
		m.hydrateFailures = noop.Int64Counter{}
	}
	return m
}

func (m *metrics) persistFailed(stage string) {
	m.persistFailures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *metrics) hydrateFailed(stage string) {
	m.hydrateFailures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("stage", stage)))
}
