package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/spinlog/internal/overlap"
	"github.com/roach88/spinlog/internal/record"
)

// TypeCount is the number of entries of one type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Stats summarizes the log.
type Stats struct {
	Key         string      `json:"key"`
	Entries     int         `json:"entries"`
	Capacity    int         `json:"capacity"`
	Overlapping int         `json:"overlapping"`
	ByType      []TypeCount `json:"by_type"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the log",
		Long: `Count log entries per type and report overlapping spin requests.

Examples:
  spinlog stats
  spinlog stats --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.openContext(cmd)
			if err != nil {
				return err
			}
			defer closeContext(c)

			entries := c.Monitor.Entries()
			stats := computeStats(entries)
			stats.Key = c.Bridge.Key()
			stats.Capacity = c.Store.Capacity()

			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd, c).Success(stats)
			}

			p := message.NewPrinter(language.English)
			w := cmd.OutOrStdout()
			p.Fprintf(w, "key: %s\n", stats.Key)
			p.Fprintf(w, "entries: %d / %d\n", stats.Entries, stats.Capacity)
			p.Fprintf(w, "overlapping requests: %d\n", stats.Overlapping)
			for _, tc := range stats.ByType {
				p.Fprintf(w, "  %-16s %d\n", tc.Type, tc.Count)
			}
			return nil
		},
	}
}

// computeStats counts entries per type in lifecycle order, skipping types
// that do not occur.
func computeStats(entries []record.Record) Stats {
	counts := make(map[record.Type]int)
	for _, rec := range entries {
		counts[rec.Type]++
	}

	stats := Stats{
		Entries:     len(entries),
		Overlapping: overlap.Classify(entries).Len(),
		ByType:      []TypeCount{},
	}
	for _, t := range record.AllTypes() {
		if n := counts[t]; n > 0 {
			stats.ByType = append(stats.ByType, TypeCount{Type: string(t), Count: n})
		}
	}
	return stats
}
