package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/spinlog/internal/record"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		marker := ""
		if event.Overlapping {
			marker = " OVERLAP"
		}
		fmt.Fprintf(&buf, "  [%d] %s %s%s\n", event.Seq, event.Type, event.name(), marker)
	}

	return buf.String()
}

// assertOverlaps checks that exactly the listed labels were flagged.
func assertOverlaps(result *Result, assertion Assertion) error {
	want := slices.Clone(assertion.Labels)
	sort.Strings(want)
	if want == nil {
		want = []string{}
	}
	if slices.Equal(want, result.Overlaps) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOverlaps,
		Expected: fmt.Sprintf("overlapping %v", want),
		Actual:   fmt.Sprintf("overlapping %v", result.Overlaps),
		Trace:    result.Trace,
	}
}

// assertEntryCount checks the number of retained records.
func assertEntryCount(result *Result, assertion Assertion) error {
	if len(result.Trace) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEntryCount,
		Expected: fmt.Sprintf("%d records", assertion.Count),
		Actual:   fmt.Sprintf("%d records", len(result.Trace)),
		Trace:    result.Trace,
	}
}

// assertTypeCount checks the number of retained records of one type.
func assertTypeCount(result *Result, assertion Assertion) error {
	typ, err := record.ParseType(assertion.EventType)
	if err != nil {
		return err
	}
	count := 0
	for _, event := range result.Trace {
		if event.Type == string(typ) {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTypeCount,
		Expected: fmt.Sprintf("%s appears %d times", typ, assertion.Count),
		Actual:   fmt.Sprintf("%s appears %d times", typ, count),
		Trace:    result.Trace,
	}
}

// assertNewestFirst checks the store order of the labeled records that are
// still retained.
func assertNewestFirst(result *Result, assertion Assertion) error {
	var got []string
	for i := len(result.Trace) - 1; i >= 0; i-- {
		if l := result.Trace[i].Label; l != "" {
			got = append(got, l)
		}
	}
	if slices.Equal(got, assertion.Labels) {
		return nil
	}
	return &AssertionError{
		Type:     AssertNewestFirst,
		Expected: fmt.Sprintf("labels %v", assertion.Labels),
		Actual:   fmt.Sprintf("labels %v", got),
		Trace:    result.Trace,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOverlaps:
			err = assertOverlaps(result, assertion)
		case AssertEntryCount:
			err = assertEntryCount(result, assertion)
		case AssertTypeCount:
			err = assertTypeCount(result, assertion)
		case AssertNewestFirst:
			err = assertNewestFirst(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
