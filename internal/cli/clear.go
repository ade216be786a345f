package cli

import (
	"github.com/spf13/cobra"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the log",
		Long: `Empty the spin debug log and persist the empty history.

Other contexts following the same slot see the log cleared.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.openContext(cmd)
			if err != nil {
				return err
			}
			defer closeContext(c)

			dropped := c.Store.Len()
			c.Store.Clear()

			f := rootOpts.formatter(cmd, c)
			if rootOpts.Format == "json" {
				return f.Success(map[string]int{"cleared": dropped})
			}
			return f.Success("log cleared")
		},
	}
}
