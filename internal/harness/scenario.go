package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spinlog/internal/record"
)

// Scenario defines a spin log test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Capacity overrides the store capacity. Zero means the default.
	Capacity int `yaml:"capacity,omitempty"`

	// Events are fed to the store in order (chronologically).
	Events []EventStep `yaml:"events"`

	// Assertions validate the retained history.
	Assertions []Assertion `yaml:"assertions"`
}

// EventStep is one store operation: an insert, or a clear.
type EventStep struct {
	// Type is the event type tag; aliases are accepted.
	Type string `yaml:"type,omitempty"`

	// Label names the event for assertions. Must be unique.
	Label string `yaml:"label,omitempty"`

	// Data is the opaque payload.
	Data any `yaml:"data,omitempty"`

	// Clear empties the log instead of inserting.
	Clear bool `yaml:"clear,omitempty"`
}

// Assertion validates the retained history.
type Assertion struct {
	// Type specifies the assertion type:
	// - "overlaps": exact set of overlapping labels
	// - "entry_count": number of retained records
	// - "type_count": number of retained records of EventType
	// - "newest_first": labeled retained records in store order
	Type string `yaml:"type"`

	// Labels are event labels (used by overlaps, newest_first).
	Labels []string `yaml:"labels,omitempty"`

	// EventType is the type tag counted by type_count.
	EventType string `yaml:"event_type,omitempty"`

	// Count is the expected number (used by entry_count, type_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertOverlaps    = "overlaps"
	AssertEntryCount  = "entry_count"
	AssertTypeCount   = "type_count"
	AssertNewestFirst = "newest_first"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Capacity < 0 {
		return fmt.Errorf("capacity must be non-negative")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	labels := make(map[string]bool)
	for i, step := range s.Events {
		if step.Clear {
			if step.Type != "" || step.Label != "" || step.Data != nil {
				return fmt.Errorf("events[%d]: clear takes no type, label or data", i)
			}
			continue
		}
		if step.Type == "" {
			return fmt.Errorf("events[%d]: type is required", i)
		}
		if _, err := record.ParseType(step.Type); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
		if step.Label == "" {
			continue
		}
		if labels[step.Label] {
			return fmt.Errorf("events[%d]: duplicate label %q", i, step.Label)
		}
		labels[step.Label] = true
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, labels); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, labels map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOverlaps:
	case AssertNewestFirst:
		if len(a.Labels) == 0 {
			return fmt.Errorf("assertions[%d]: labels list is required for newest_first", index)
		}
	case AssertEntryCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for entry_count", index)
		}
	case AssertTypeCount:
		if a.EventType == "" {
			return fmt.Errorf("assertions[%d]: event_type is required for type_count", index)
		}
		if _, err := record.ParseType(a.EventType); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for type_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for _, l := range a.Labels {
		if !labels[l] {
			return fmt.Errorf("assertions[%d]: unknown label %q", index, l)
		}
	}

	return nil
}
