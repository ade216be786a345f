package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/spinlog/internal/app"
	"github.com/roach88/spinlog/internal/monitor"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Limit int // newest entries to show, 0 for all
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the log live",
		Long: `Show the spin debug log and re-render it whenever another context
writes to the shared slot. Runs until interrupted.

With --format json every render is one JSON line.

Examples:
  spinlog watch
  spinlog watch --backend redis --redis-addr localhost:6379
  spinlog watch --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "show only the newest N entries")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must be non-negative")
	}

	c, err := opts.openContext(cmd)
	if err != nil {
		return err
	}
	defer closeContext(c)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	changed := make(chan struct{}, 1)
	unsubscribe := c.Monitor.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	syncErr := make(chan error, 1)
	go func() { syncErr <- c.Sync(ctx) }()

	slog.Info("watching log", "backend", c.Config.Backend, "key", c.Config.Key)
	if err := renderWatch(opts, cmd, c); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch stopped")
			return nil
		case err := <-syncErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return WrapExitError(ExitCommandError, "sync failed", err)
			}
			return nil
		case <-changed:
			if err := renderWatch(opts, cmd, c); err != nil {
				return err
			}
		}
	}
}

func renderWatch(opts *WatchOptions, cmd *cobra.Command, c *app.Context) error {
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

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "---")
	return renderRows(w, rows)
}
