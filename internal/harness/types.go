package harness

// TraceEvent is one retained record, as seen after the scenario ran.
type TraceEvent struct {
	Seq         int     `json:"seq"`
	ID          string  `json:"id"`
	Label       string  `json:"label,omitempty"`
	Type        string  `json:"type"`
	Timestamp   float64 `json:"timestamp"`
	Data        any     `json:"data,omitempty"`
	Overlapping bool    `json:"overlapping,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Trace contains the retained records, oldest first.
	Trace []TraceEvent `json:"trace"`

	// Overlaps names the overlapping requests by label, or by id when the
	// event was not labeled. Sorted.
	Overlaps []string `json:"overlaps"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Overlaps: []string{},
		Errors:   []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
