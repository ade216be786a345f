// Package spinengine drives the wheel and reports what it does to the
// spin debug log. Wheel rotation is disabled: a spin lands instantly and
// both wheels stay at rest.
package spinengine

import (
	"fmt"

	"github.com/roach88/spinlog/internal/record"
)

// Sink accepts log entries. *logstore.Store satisfies it.
type Sink interface {
	Insert(e record.Entry) (record.Record, error)
}

// Notes attached to the events an Engine logs.
const (
	NoteRotationDisabled = "rotation disabled"
	NoteCompletedAtOnce  = "no rotation, completed instantly"
)

// Engine is a wheel pair whose rotation is disabled.
type Engine struct {
	sink Sink
}

// New creates an engine logging to sink.
func New(sink Sink) *Engine {
	return &Engine{sink: sink}
}

// Rotations returns the wheel angles in degrees. Always at rest.
func (e *Engine) Rotations() (wheel1, wheel2 float64) {
	return 0, 0
}

// SpinToResult logs a request for result and its immediate completion.
func (e *Engine) SpinToResult(result string) error {
	if _, err := e.sink.Insert(record.Entry{
		Type: record.TypeSpinRequest,
		Data: map[string]any{"resultNumber": result, "note": NoteRotationDisabled},
	}); err != nil {
		return fmt.Errorf("spin to %s: %w", result, err)
	}
	if _, err := e.sink.Insert(record.Entry{
		Type: record.TypeSpinComplete,
		Data: map[string]any{"note": NoteCompletedAtOnce},
	}); err != nil {
		return fmt.Errorf("spin to %s: %w", result, err)
	}
	return nil
}

// Reset returns the wheels to rest and logs it.
func (e *Engine) Reset() error {
	if _, err := e.sink.Insert(record.Entry{
		Type: record.TypeReset,
		Data: map[string]any{"reason": NoteRotationDisabled},
	}); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}
