package record

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is returned when an event type is outside the closed set.
var ErrUnknownType = errors.New("unknown event type")

// Type tags one logged occurrence in the spin lifecycle.
type Type string

const (
	TypeSpinRequest    Type = "SPIN_REQUEST"
	TypeSpinIgnored    Type = "SPIN_IGNORED"
	TypeAnimationStart Type = "ANIMATION_START"
	TypeAnimProgress   Type = "ANIM_PROGRESS"
	TypeMicroStart     Type = "MICRO_START"
	TypeSpinComplete   Type = "SPIN_COMPLETE"
	TypeReset          Type = "RESET"
	TypeCancelPrevious Type = "CANCEL_PREVIOUS"
	TypeError          Type = "ERROR"
)

// allTypes lists the closed set in lifecycle order.
var allTypes = []Type{
	TypeSpinRequest,
	TypeSpinIgnored,
	TypeAnimationStart,
	TypeAnimProgress,
	TypeMicroStart,
	TypeSpinComplete,
	TypeReset,
	TypeCancelPrevious,
	TypeError,
}

// typeAliases maps the short names accepted on input to their tags.
var typeAliases = map[string]Type{
	"REQUEST":  TypeSpinRequest,
	"IGNORED":  TypeSpinIgnored,
	"COMPLETE": TypeSpinComplete,
}

// AllTypes returns every valid type tag in lifecycle order.
func AllTypes() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// Valid reports whether t is one of the nine known tags.
func (t Type) Valid() bool {
	for _, known := range allTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// ParseType converts user input to a Type.
// Matching is case-insensitive and accepts REQUEST, IGNORED and COMPLETE
// as short forms of the SPIN_ tags.
func ParseType(s string) (Type, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := typeAliases[norm]; ok {
		return alias, nil
	}
	t := Type(norm)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Entry is what a producer hands to the store: a type and an optional
// payload. The store supplies identity and time.
type Entry struct {
	Type Type
	Data any
}

// Record is one immutable logged occurrence.
type Record struct {
	ID        string  `json:"id"`
	Type      Type    `json:"type"`
	Timestamp float64 `json:"timestamp"` // ms on the process monotonic clock
	Data      any     `json:"data,omitempty"`
}
