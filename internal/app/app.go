// Package app wires one process context: a backend, the store mirrored into
// it, the monitor over both and the cross-context syncer.
//
// A Context replaces process-wide singletons. Producers and viewers receive
// it explicitly; there is exactly one per process and it lives until Close.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/roach88/spinlog/internal/config"
	"github.com/roach88/spinlog/internal/crosssync"
	"github.com/roach88/spinlog/internal/logstore"
	"github.com/roach88/spinlog/internal/monitor"
	"github.com/roach88/spinlog/internal/persist"
)

// Context is the spin debug log of one process.
type Context struct {
	Config  config.Config
	Backend persist.Backend
	Bridge  *persist.Bridge
	Store   *logstore.Store
	Monitor *monitor.Monitor
	Syncer  *crosssync.Syncer

	logger *slog.Logger
}

type options struct {
	logger        *slog.Logger
	meterProvider metric.MeterProvider
	bus           *persist.MemoryBus
	storeOpts     []logstore.Option
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMeterProvider sets where component metrics are reported.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithMemoryBus shares bus between contexts opened with the memory backend.
func WithMemoryBus(bus *persist.MemoryBus) Option {
	return func(o *options) { o.bus = bus }
}

// WithStoreOptions passes extra options to the store, after the ones
// derived from the configuration.
func WithStoreOptions(opts ...logstore.Option) Option {
	return func(o *options) { o.storeOpts = append(o.storeOpts, opts...) }
}

// Open connects the configured backend, adopts the persisted history and
// starts the monitor. The syncer is created but not run; see Sync.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Context, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("open context: %w", err)
	}

	backend, err := OpenBackend(ctx, cfg, o.bus)
	if err != nil {
		return nil, fmt.Errorf("open context: %w", err)
	}

	bridge := persist.NewBridge(backend,
		persist.WithKey(cfg.Key),
		persist.WithBridgeLogger(o.logger),
		persist.WithBridgeMeterProvider(o.meterProvider),
	)

	storeOpts := []logstore.Option{
		logstore.WithCapacity(cfg.Capacity),
		logstore.WithMirror(bridge),
		logstore.WithLogger(o.logger),
		logstore.WithMeterProvider(o.meterProvider),
	}
	store := logstore.New(append(storeOpts, o.storeOpts...)...)
	store.Restore(persist.Reconcile(store.Snapshot(), bridge.Hydrate(ctx)))

	mon := monitor.New(store, bridge, o.logger)
	mon.Start(ctx)

	c := &Context{
		Config:  cfg,
		Backend: backend,
		Bridge:  bridge,
		Store:   store,
		Monitor: mon,
		Syncer:  crosssync.New(backend, bridge, mon.Replace, crosssync.WithLogger(o.logger)),
		logger:  o.logger.With("component", "app", "origin", backend.Origin()),
	}
	c.logger.Debug("context opened", "backend", cfg.Backend, "records", store.Len())
	return c, nil
}

// Sync applies changes written by other contexts until ctx is done.
func (c *Context) Sync(ctx context.Context) error {
	return c.Syncer.Run(ctx)
}

// Close stops the monitor and closes the backend.
func (c *Context) Close() error {
	c.Monitor.Stop()
	if err := c.Backend.Close(); err != nil {
		return fmt.Errorf("close context: %w", err)
	}
	c.logger.Debug("context closed")
	return nil
}

// OpenBackend connects the backend named by cfg. bus is used by the memory
// backend; nil gives the context a private bus.
func OpenBackend(ctx context.Context, cfg config.Config, bus *persist.MemoryBus) (persist.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		if bus == nil {
			bus = persist.NewMemoryBus()
		}
		return bus.Open(), nil
	case config.BackendSQLite:
		s, err := persist.OpenSQLite(cfg.DBPath, persist.WithPollInterval(cfg.PollInterval))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		s, err := persist.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		s, err := persist.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
