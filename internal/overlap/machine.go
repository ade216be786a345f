package overlap

import "github.com/roach88/spinlog/internal/record"

// State is the classifier's position between spins.
type State string

const (
	StateIdle           State = "IDLE"
	StateSpinInProgress State = "SPIN_IN_PROGRESS"
)

// Machine is the classifier's state machine. The zero value is idle.
type Machine struct {
	state State
}

// State returns the current state.
func (m *Machine) State() State {
	if m.state == "" {
		return StateIdle
	}
	return m.state
}

// Step applies one event and reports whether it is an overlapping request.
func (m *Machine) Step(t record.Type) (overlapping bool) {
	switch t {
	case record.TypeSpinRequest:
		overlapping = m.State() == StateSpinInProgress
		m.state = StateSpinInProgress
	case record.TypeSpinComplete, record.TypeReset:
		m.state = StateIdle
	}
	return overlapping
}
