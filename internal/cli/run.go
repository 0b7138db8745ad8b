package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/culture"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Config   string
	Seed     int64
	Ticks    int64

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs culture.RunIDGenerator
}

// RunResult is the outcome of a simulation run.
type RunResult struct {
	RunID  string         `json:"run_id"`
	Status string         `json:"status"`
	Seed   int64          `json:"seed"`
	Ticks  int64          `json:"ticks"`
	Cells  int            `json:"cells"`
	Counts map[string]int `json:"counts"`
	Digest string         `json:"digest"`

	counts [cell.NumTypes]int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a culture and store the run",
		Long: `Simulate a culture of developing cells and record it in a SQLite database.

The configuration is a CUE file resolved against the built-in schema; without
--config the defaults are used (one germinating cell, 500 ticks). Events are
stored for every tick and population snapshots every snapshot_every ticks.
Interrupting the run stores what was simulated so far.

Example:
  chlamsim run --db ./runs.db
  chlamsim run --db ./runs.db --config culture.cue --seed 42 --ticks 1000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE configuration file")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "override the configured seed")
	cmd.Flags().Int64Var(&opts.Ticks, "ticks", 0, "override the configured number of ticks")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(cmd, opts.Config, opts.Seed, opts.Ticks)
	if err != nil {
		return err
	}
	cfgJSON, err := cfg.JSON()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode config", err)
	}

	logger.Debug("opening database", "path", opts.Database)
	st, err := openStore(opts.Database, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ids := opts.RunIDs
	if ids == nil {
		ids = culture.UUIDv7Generator{}
	}
	runID := ids.Generate()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// Setup is not interruptible; cancellation stops the run between ticks.
	setupCtx := context.WithoutCancel(ctx)
	err = st.CreateRun(setupCtx, store.Run{
		ID:     runID,
		Seed:   cfg.Seed,
		Ticks:  cfg.Ticks,
		Config: string(cfgJSON),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create run", err)
	}

	c := culture.New(cfg.Culture(), timing.NewSource(cfg.Seed), cfg.Params(),
		culture.WithSink(st.Sink(runID)),
		culture.WithLogger(logger),
	)
	if err := cfg.Populate(c); err != nil {
		return WrapExitError(ExitCommandError, "failed to place founders", err)
	}

	logger.Info("run starting", "run_id", runID, "seed", cfg.Seed, "ticks", cfg.Ticks)
	if err := c.Start(setupCtx); err != nil {
		return failRun(st, runID, c.Tick(), err)
	}

	res, runErr := c.Run(ctx, cfg.Ticks)
	status := store.StatusComplete
	switch {
	case runErr == nil:
	case errors.Is(runErr, culture.ErrPopulationCap):
		status = store.StatusCapped
	case errors.Is(runErr, context.Canceled):
		status = store.StatusCancelled
	default:
		return failRun(st, runID, c.Tick(), runErr)
	}

	if err := st.FinishRun(setupCtx, runID, status, res.Ticks, res.Digest); err != nil {
		return WrapExitError(ExitCommandError, "failed to finish run", err)
	}
	logger.Info("run finished", "run_id", runID, "status", status, "tick", res.Ticks, "cells", res.Cells)

	out := RunResult{
		RunID:  runID,
		Status: status,
		Seed:   cfg.Seed,
		Ticks:  res.Ticks,
		Cells:  res.Cells,
		Counts: countsByName(res.Counts),
		Digest: res.Digest,
		counts: res.Counts,
	}
	if opts.Format == "json" {
		return formatter.Success(out)
	}
	printRunResult(cmd, out)
	return nil
}

// failRun records a failed run and returns the command error.
func failRun(st *store.Store, runID string, tick int64, cause error) error {
	if err := st.FinishRun(context.Background(), runID, store.StatusFailed, tick, ""); err != nil {
		return WrapExitError(ExitFailure, "run failed", errors.Join(cause, err))
	}
	return WrapExitError(ExitFailure, "run failed", cause)
}

func printRunResult(cmd *cobra.Command, r RunResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run:    %s\n", r.RunID)
	fmt.Fprintf(w, "Status: %s\n", r.Status)
	fmt.Fprintf(w, "Seed:   %d\n", r.Seed)
	fmt.Fprintf(w, "Ticks:  %d\n", r.Ticks)
	fmt.Fprintf(w, "Cells:  %d\n", r.Cells)
	fmt.Fprintf(w, "Digest: %s\n", r.Digest)
	for t := cell.Type(0); t < cell.NumTypes; t++ {
		if n := r.counts[t]; n > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", t, n)
		}
	}
}

// countsByName keys per-stage counts by stage name, omitting empty stages.
func countsByName(counts [cell.NumTypes]int) map[string]int {
	out := make(map[string]int)
	for t := cell.Type(0); t < cell.NumTypes; t++ {
		if counts[t] > 0 {
			out[t.String()] = counts[t]
		}
	}
	return out
}
