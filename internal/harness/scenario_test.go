package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
capacity: 10
events:
  - type: request
    label: a
    data:
      resultNumber: "42"
  - clear: true
  - type: SPIN_COMPLETE
assertions:
  - type: overlaps
    labels: [a]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, 10, scenario.Capacity)
	require.Len(t, scenario.Events, 3)
	assert.Equal(t, "a", scenario.Events[0].Label)
	assert.Equal(t, map[string]any{"resultNumber": "42"}, scenario.Events[0].Data)
	assert.True(t, scenario.Events[1].Clear)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "typo"
events:
  - type: REQUEST
assertion:
  - type: overlaps
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "d"
events: [{type: REQUEST}]
assertions: [{type: overlaps}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
events: [{type: REQUEST}]
assertions: [{type: overlaps}]
`,
			wantErr: "description is required",
		},
		{
			name: "no events",
			content: `
name: n
description: d
assertions: [{type: overlaps}]
`,
			wantErr: "events list is required",
		},
		{
			name: "no assertions",
			content: `
name: n
description: d
events: [{type: REQUEST}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown event type",
			content: `
name: n
description: d
events: [{type: SPIN_FAST}]
assertions: [{type: overlaps}]
`,
			wantErr: "unknown event type",
		},
		{
			name: "missing event type",
			content: `
name: n
description: d
events: [{label: a}]
assertions: [{type: overlaps}]
`,
			wantErr: "events[0]: type is required",
		},
		{
			name: "clear with type",
			content: `
name: n
description: d
events: [{clear: true, type: RESET}]
assertions: [{type: overlaps}]
`,
			wantErr: "clear takes no type",
		},
		{
			name: "duplicate label",
			content: `
name: n
description: d
events: [{type: REQUEST, label: a}, {type: REQUEST, label: a}]
assertions: [{type: overlaps}]
`,
			wantErr: "duplicate label",
		},
		{
			name: "unknown assertion",
			content: `
name: n
description: d
events: [{type: REQUEST}]
assertions: [{type: final_state}]
`,
			wantErr: "unknown assertion type",
		},
		{
			name: "unknown label",
			content: `
name: n
description: d
events: [{type: REQUEST, label: a}]
assertions: [{type: overlaps, labels: [z]}]
`,
			wantErr: "unknown label",
		},
		{
			name: "type_count without type",
			content: `
name: n
description: d
events: [{type: REQUEST}]
assertions: [{type: type_count, count: 1}]
`,
			wantErr: "event_type is required",
		},
		{
			name: "newest_first without labels",
			content: `
name: n
description: d
events: [{type: REQUEST}]
assertions: [{type: newest_first}]
`,
			wantErr: "labels list is required",
		},
		{
			name: "negative capacity",
			content: `
name: n
description: d
capacity: -1
events: [{type: REQUEST}]
assertions: [{type: overlaps}]
`,
			wantErr: "capacity must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
