package harness

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/spinlog/internal/logstore"
	"github.com/roach88/spinlog/internal/overlap"
	"github.com/roach88/spinlog/internal/record"
	"github.com/roach88/spinlog/internal/testutil"
)

// FixedWallMillis is the wall time every scenario id is minted at.
const FixedWallMillis int64 = 1700000000000

// Harness is the scenario execution engine.
// It runs scenarios against a fresh store with a deterministic clock and
// id generator.
type Harness struct {
	store  *logstore.Store
	labels map[string]string // record id -> label
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create a fresh store (no persistence)
// 2. Apply every event step in order
// 3. Classify the retained history
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	opts := []logstore.Option{
		logstore.WithIDGenerator(record.NewIDGenerator(testutil.FixedWall(FixedWallMillis))),
		logstore.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	if scenario.Capacity > 0 {
		opts = append(opts, logstore.WithCapacity(scenario.Capacity))
	}
	opts = append(opts, logstore.WithClock(testutil.NewDeterministicClock()))

	h := &Harness{
		store:  logstore.New(opts...),
		labels: make(map[string]string),
	}

	if err := h.executeEvents(scenario.Events); err != nil {
		return nil, fmt.Errorf("failed to execute events: %w", err)
	}

	result := h.buildResult()
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// executeEvents applies the event steps to the store.
func (h *Harness) executeEvents(steps []EventStep) error {
	for i, step := range steps {
		if step.Clear {
			h.store.Clear()
			continue
		}
		typ, err := record.ParseType(step.Type)
		if err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
		rec, err := h.store.Insert(record.Entry{Type: typ, Data: step.Data})
		if err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
		if step.Label != "" {
			h.labels[rec.ID] = step.Label
		}
	}
	return nil
}

// buildResult turns the retained history into a chronological trace.
func (h *Harness) buildResult() *Result {
	result := NewResult()
	snapshot := h.store.Snapshot()
	flagged := overlap.Classify(snapshot)

	for i := len(snapshot) - 1; i >= 0; i-- {
		rec := snapshot[i]
		ev := TraceEvent{
			Seq:         len(result.Trace) + 1,
			ID:          rec.ID,
			Label:       h.labels[rec.ID],
			Type:        string(rec.Type),
			Timestamp:   rec.Timestamp,
			Data:        rec.Data,
			Overlapping: flagged.Contains(rec.ID),
		}
		result.Trace = append(result.Trace, ev)
		if ev.Overlapping {
			result.Overlaps = append(result.Overlaps, ev.name())
		}
	}
	sort.Strings(result.Overlaps)
	return result
}

// name is the label if set, the id otherwise.
func (e TraceEvent) name() string {
	if e.Label != "" {
		return e.Label
	}
	return e.ID
}
