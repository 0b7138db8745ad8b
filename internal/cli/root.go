package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/config"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the chlamsim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chlamsim",
		Short: "chlamsim - Chlamydial developmental cycle simulator",
		Long: `Simulate the intracellular developmental cycle EB -> RB -> IB -> EB
of a growing Chlamydia population, store every run, and inspect it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
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

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// openStore opens an existing database. A missing file is a command error
// rather than an empty store.
func openStore(path string, mustExist bool) (*store.Store, error) {
	if mustExist {
		if err := fileExists(path); err != nil {
			return nil, WrapExitError(ExitCommandError, "database not found", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// resolveRun returns the named run, or the latest run when id is empty.
func resolveRun(ctx context.Context, st *store.Store, id string) (store.Run, error) {
	var (
		run store.Run
		err error
	)
	if id == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.GetRun(ctx, id)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		return store.Run{}, WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return store.Run{}, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}

// loadConfig resolves the configuration file, or the defaults when path is
// empty, then applies flag overrides.
func loadConfig(cmd *cobra.Command, path string, seed, ticks int64) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("ticks") {
		if ticks < 0 {
			return nil, NewExitError(ExitCommandError, "ticks must not be negative")
		}
		cfg.Ticks = ticks
	}
	return cfg, nil
}
