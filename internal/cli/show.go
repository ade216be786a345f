package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/spinlog/internal/monitor"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Limit int // newest entries to show, 0 for all
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the log, newest first",
		Long: `Show the spin debug log, newest first.

The history shown is the richer of this process's copy and the persisted
slot. Spin requests made while an earlier spin was still in progress are
marked OVERLAP.

Examples:
  spinlog show
  spinlog show --limit 20
  spinlog show --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show only the newest N entries")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}

	c, err := opts.openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(c)

	rows := c.Monitor.Rows()
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	if opts.Format == "json" {
		if rows == nil {
			rows = []monitor.Row{}
		}
		return opts.formatter(cmd, c).Success(rows)
	}
	return renderRows(cmd.OutOrStdout(), rows)
}
