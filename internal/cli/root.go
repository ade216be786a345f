package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/spinlog/internal/app"
	"github.com/roach88/spinlog/internal/config"
	"github.com/roach88/spinlog/internal/persist"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Backend selection. Empty values fall back to the environment.
	EnvFile     string
	Backend     string
	DB          string
	RedisAddr   string
	PostgresDSN string
	Key         string

	// Bus is shared by every context opened with the memory backend.
	// Tests set it to observe what commands wrote.
	Bus *persist.MemoryBus
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the spinlog CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spinlog",
		Short: "spinlog - spin wheel debug event log",
		Long: `Record, inspect and share the spin wheel debug log.

Every process is one context: it adopts the persisted history on start,
mirrors each change back to the shared slot, and can follow changes
written by other contexts.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file to load (default .env)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "persistence backend (memory|sqlite|redis|postgres)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.RedisAddr, "redis-addr", "", "Redis address (host:port)")
	cmd.PersistentFlags().StringVar(&opts.PostgresDSN, "postgres-dsn", "", "Postgres connection string")
	cmd.PersistentFlags().StringVar(&opts.Key, "key", "", "slot key the log is stored under")

	// Add subcommands
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	for _, sub := range cmd.Commands() {
		sub.RunE = opts.reportErrors(sub.RunE)
	}

	return cmd
}

// reportErrors wraps run so that under --format json a failure is also
// written to stdout as an error envelope.
func (o *RootOptions) reportErrors(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if err == nil || o.Format != "json" {
			return err
		}

		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.reported {
			return err
		}

		message := err.Error()
		var details interface{}
		if exitErr != nil {
			message = exitErr.Message
			if exitErr.Err != nil {
				details = exitErr.Err.Error()
			}
		}
		if ferr := o.formatter(cmd, nil).Error(errorKind(err), message, details); ferr != nil {
			slog.Error("failed to write error response", "error", ferr)
		}
		return err
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// resolveConfig loads the environment configuration and applies flag
// overrides.
func (o *RootOptions) resolveConfig() (config.Config, error) {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if o.Backend != "" {
		cfg.Backend = config.Backend(o.Backend)
	}
	if o.DB != "" {
		cfg.DBPath = o.DB
	}
	if o.RedisAddr != "" {
		cfg.Redis.Addr = o.RedisAddr
	}
	if o.PostgresDSN != "" {
		cfg.PostgresDSN = o.PostgresDSN
	}
	if o.Key != "" {
		cfg.Key = o.Key
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger configures diagnostics on w: the configured level, or Debug
// with --verbose.
func (o *RootOptions) newLogger(w io.Writer, level slog.Level) *slog.Logger {
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openContext opens this process's log context for cmd.
func (o *RootOptions) openContext(cmd *cobra.Command) (*app.Context, error) {
	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err).WithKind(CodeInvalidInput)
	}

	logger := o.newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Debug("opening context", "backend", cfg.Backend, "key", cfg.Key)
	c, err := app.Open(ctx, cfg, app.WithLogger(logger), app.WithMemoryBus(o.Bus))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open log", err).WithKind(CodeBackend)
	}
	return c, nil
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command, c *app.Context) *OutputFormatter {
	f := &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
	if c != nil {
		f.Origin = c.Backend.Origin()
	}
	return f
}

// closeContext closes c, logging rather than failing the command.
func closeContext(c *app.Context) {
	if err := c.Close(); err != nil {
		slog.Error("error closing log", "error", err)
	}
}
