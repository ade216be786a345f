package crosssync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/spinlog/internal/persist"
	"github.com/roach88/spinlog/internal/record"
)

// Applier replaces the observed history with records, newest first.
type Applier func(records []record.Record)

// Syncer applies external changes of one slot key.
type Syncer struct {
	feed   persist.Feed
	bridge *persist.Bridge
	apply  Applier
	logger *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger for sync diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a syncer for bridge.Key(). Changes are read from feed and
// handed to apply; bridge re-reads the slot when a change carries no usable
// value.
func New(feed persist.Feed, bridge *persist.Bridge, apply Applier, opts ...Option) *Syncer {
	s := &Syncer{
		feed:   feed,
		bridge: bridge,
		apply:  apply,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "crosssync", "key", bridge.Key())
	return s
}

// Handle applies a single change. Changes of other keys are ignored.
func (s *Syncer) Handle(ctx context.Context, c persist.Change) {
	if c.Key != s.bridge.Key() {
		return
	}

	if c.HasValue {
		records, err := record.DecodeSequence(c.Value)
		if err == nil {
			s.logger.Debug("applied external change", "origin", c.Origin, "records", len(records))
			s.apply(records)
			return
		}
		s.logger.Debug("external change malformed, re-reading slot", "origin", c.Origin, "error", err)
	}

	records := s.bridge.Hydrate(ctx)
	s.logger.Debug("re-read slot after external change", "origin", c.Origin, "records", len(records))
	s.apply(records)
}

// Run watches the feed and applies changes in arrival order until ctx is
// done. Delivery from the backend is buffered so a slow applier never stalls
// it.
func (s *Syncer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes, err := s.feed.Watch(ctx, s.bridge.Key())
	if err != nil {
		return fmt.Errorf("crosssync: watch: %w", err)
	}

	queue := persist.NewChangeQueue()
	go func() {
		defer queue.Close()
		for c := range changes {
			queue.Enqueue(c)
		}
	}()

	s.logger.Debug("watching for external changes")
	for {
		for c, ok := queue.TryDequeue(); ok; c, ok = queue.TryDequeue() {
			if ctx.Err() != nil {
				return nil
			}
			s.Handle(ctx, c)
		}
		select {
		case <-ctx.Done():
			return nil
		case _, open := <-queue.Wait():
			if !open && queue.Len() == 0 {
				s.logger.Debug("change feed closed")
				return nil
			}
		}
	}
}
