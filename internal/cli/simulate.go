package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spinlog/internal/spinengine"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Reset bool // reset the wheels after the spins
}

// SimulateResult summarizes a simulate run.
type SimulateResult struct {
	Spins   int  `json:"spins"`
	Reset   bool `json:"reset"`
	Entries int  `json:"entries"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <result>...",
		Short: "Drive the spin engine",
		Long: `Spin the wheels to each result in turn, logging what the engine does.

Rotation is disabled, so every spin completes immediately: each result
logs a SPIN_REQUEST followed by a SPIN_COMPLETE.

Examples:
  spinlog simulate 42
  spinlog simulate 07 13 99 --reset
  spinlog simulate --reset`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "reset the wheels afterwards")

	return cmd
}

func runSimulate(opts *SimulateOptions, results []string, cmd *cobra.Command) error {
	if len(results) == 0 && !opts.Reset {
		return NewExitError(ExitCommandError, "nothing to simulate: give at least one result or --reset")
	}

	c, err := opts.openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(c)

	engine := spinengine.New(c.Store)
	f := opts.formatter(cmd, c)
	for _, r := range results {
		if err := engine.SpinToResult(r); err != nil {
			return WrapExitError(ExitFailure, "spin failed", err)
		}
		f.VerboseLog("spun to %s", r)
	}
	if opts.Reset {
		if err := engine.Reset(); err != nil {
			return WrapExitError(ExitFailure, "reset failed", err)
		}
	}

	summary := SimulateResult{Spins: len(results), Reset: opts.Reset, Entries: c.Store.Len()}
	if opts.Format == "json" {
		return f.Success(summary)
	}
	msg := fmt.Sprintf("simulated %d spin(s)", summary.Spins)
	if summary.Reset {
		msg += " and a reset"
	}
	return f.Success(fmt.Sprintf("%s (%d entries)", msg, summary.Entries))
}
