package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spinlog/internal/record"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Data string // JSON payload
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <type>",
		Short: "Record one event",
		Long: `Record one event in the spin debug log.

The type is one of SPIN_REQUEST, SPIN_IGNORED, ANIMATION_START,
ANIM_PROGRESS, MICRO_START, SPIN_COMPLETE, RESET, CANCEL_PREVIOUS, ERROR
(case-insensitive; REQUEST, IGNORED and COMPLETE are accepted as short forms).

Examples:
  spinlog log request --data '{"resultNumber":"42"}'
  spinlog log SPIN_COMPLETE
  spinlog log error --data '"socket closed"' --backend redis`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "JSON payload attached to the event")

	return cmd
}

func runLog(opts *LogOptions, typeArg string, cmd *cobra.Command) error {
	typ, err := record.ParseType(typeArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid event type", err).WithKind(CodeInvalidInput)
	}

	var data any
	if opts.Data != "" {
		if err := json.Unmarshal([]byte(opts.Data), &data); err != nil {
			return WrapExitError(ExitCommandError, "invalid --data JSON", err).WithKind(CodeInvalidInput)
		}
	}

	c, err := opts.openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(c)

	rec, err := c.Store.Insert(record.Entry{Type: typ, Data: data})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to log event", err)
	}

	f := opts.formatter(cmd, c)
	if opts.Format == "json" {
		return f.Success(rec)
	}
	return f.Success(fmt.Sprintf("logged %s %s (%d entries)", rec.Type, rec.ID, c.Store.Len()))
}
