package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/config"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/culture"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
}

// DigestMismatch is one snapshot whose replayed digest differs.
type DigestMismatch struct {
	Tick     int64  `json:"tick"`
	Stored   string `json:"stored"`
	Replayed string `json:"replayed"`
}

// ReplayResult holds the replay verification result.
type ReplayResult struct {
	RunID         string           `json:"run_id"`
	Ticks         int64            `json:"ticks"`
	Snapshots     int              `json:"snapshots"`
	Events        int              `json:"events"`
	EventsMatch   bool             `json:"events_match"`
	FinalDigest   string           `json:"final_digest"`
	FinalMatch    bool             `json:"final_match"`
	Mismatches    []DigestMismatch `json:"mismatches"`
	Deterministic bool             `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a stored run and verify determinism",
		Long: `Re-run a stored simulation from its stored configuration and verify that
every snapshot digest, the event log and the final digest are reproduced.

Exit codes:
  0 - The run replayed identically
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, run not found, etc.)

Examples:
  chlamsim replay --db ./runs.db
  chlamsim replay --db ./runs.db --run 0192f1c2-...
  chlamsim replay --db ./runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to replay (default: latest)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := resolveRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}
	if run.Status == store.StatusRunning || run.Status == store.StatusFailed {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("run %s is %s and cannot be replayed", run.ID, run.Status))
	}

	cfg, err := config.Parse([]byte(run.Config), run.ID+".json")
	if err != nil {
		return WrapExitError(ExitCommandError, "stored config is invalid", err)
	}

	storedSnaps, err := st.ReadSnapshots(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshots", err)
	}
	storedEvents, err := st.ReadEvents(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	logger.Debug("replaying run", "run_id", run.ID, "ticks", run.FinalTick)
	sink := newRecordingSink()
	c := culture.New(cfg.Culture(), timing.NewSource(cfg.Seed), cfg.Params(),
		culture.WithSink(sink),
		culture.WithLogger(logger),
	)
	if err := cfg.Populate(c); err != nil {
		return WrapExitError(ExitCommandError, "failed to place founders", err)
	}
	if err := c.Start(ctx); err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}
	res, err := c.Run(ctx, run.FinalTick)
	if err != nil && !errors.Is(err, culture.ErrPopulationCap) {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		RunID:       run.ID,
		Ticks:       res.Ticks,
		Snapshots:   len(storedSnaps),
		Events:      len(storedEvents),
		EventsMatch: cmp.Equal(storedEvents, sink.events),
		FinalDigest: res.Digest,
		FinalMatch:  res.Digest == run.FinalDigest,
		Mismatches:  []DigestMismatch{},
	}
	for _, snap := range storedSnaps {
		replayed := sink.digests[snap.Tick]
		if replayed != snap.Digest {
			result.Mismatches = append(result.Mismatches, DigestMismatch{
				Tick:     snap.Tick,
				Stored:   snap.Digest,
				Replayed: replayed,
			})
		}
	}
	if len(sink.digests) != len(storedSnaps) {
		logger.Debug("snapshot count differs", "stored", len(storedSnaps), "replayed", len(sink.digests))
	}
	result.Deterministic = result.EventsMatch && result.FinalMatch &&
		len(result.Mismatches) == 0 && len(sink.digests) == len(storedSnaps)

	if !result.EventsMatch && opts.Verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), cmp.Diff(storedEvents, sink.events))
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

// recordingSink keeps a replay's events and snapshot digests in memory.
type recordingSink struct {
	events  []cell.Event
	digests map[int64]string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: []cell.Event{}, digests: map[int64]string{}}
}

func (r *recordingSink) WriteEvents(_ context.Context, events []cell.Event) error {
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingSink) WriteSnapshot(_ context.Context, tick int64, _ cell.Population, digest string) error {
	r.digests[tick] = digest
	return nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.RunID,
	}

	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Deterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay: %s\n", result.RunID)
	fmt.Fprintf(w, "  Ticks:     %d\n", result.Ticks)
	fmt.Fprintf(w, "  Snapshots: %d\n", result.Snapshots)
	fmt.Fprintf(w, "  Events:    %d\n", result.Events)
	fmt.Fprintln(w)

	for _, m := range result.Mismatches {
		replayed := truncateID(m.Replayed)
		if replayed == "" {
			replayed = "(missing)"
		}
		fmt.Fprintf(w, "✗ tick %d: stored %s, replayed %s\n", m.Tick, truncateID(m.Stored), replayed)
	}
	if !result.EventsMatch {
		fmt.Fprintln(w, "✗ event log differs")
	}
	if !result.FinalMatch {
		fmt.Fprintln(w, "✗ final digest differs")
	}

	if result.Deterministic {
		fmt.Fprintln(w, "✓ Run verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
