package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string // file path, empty for stdout
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the whole log as JSON",
		Long: `Print the whole spin debug log as indented JSON, newest first.

This is the persisted format: an array of {id, type, timestamp, data}.

Examples:
  spinlog export > spin-log.json
  spinlog export -o spin-log.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	c, err := opts.openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(c)

	data, err := c.Monitor.Export(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "log is not serializable", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write export", err)
		}
		opts.formatter(cmd, c).VerboseLog("wrote %s", opts.Output)
		return nil
	}

	if opts.Format == "json" {
		return opts.formatter(cmd, c).Success(json.RawMessage(data))
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
