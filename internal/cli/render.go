package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/roach88/spinlog/internal/monitor"
)

// renderRows prints rows as an aligned table, newest first, with
// overlapping requests marked.
func renderRows(w io.Writer, rows []monitor.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No log entries.")
		return err
	}

	overlapping := 0
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME (ms)\tTYPE\tID\tDATA\t")
	for _, r := range rows {
		mark := ""
		if r.Overlapping {
			mark = "OVERLAP"
			overlapping++
		}
		fmt.Fprintf(tw, "%.1f\t%s\t%s\t%s\t%s\n", r.Timestamp, r.Type, r.ID, dataString(r.Data), mark)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%d entries, %d overlapping\n", len(rows), overlapping)
	return err
}

// dataString renders a payload on one line.
func dataString(data any) string {
	if data == nil {
		return "-"
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprint(data)
	}
	return string(b)
}
