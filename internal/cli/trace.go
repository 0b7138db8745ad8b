package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	CellID   int64
}

// TraceEvent represents a single event in the cell's timeline.
type TraceEvent struct {
	Seq       int64    `json:"seq"`
	Tick      int64    `json:"tick"`
	Kind      string   `json:"kind"`
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Daughters []int64  `json:"daughters,omitempty"`
	Code      string   `json:"code,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID     string       `json:"run_id"`
	CellID    int64        `json:"cell_id"`
	Timeline  []TraceEvent `json:"timeline"`
	Ancestry  []int64      `json:"ancestry"`
	FinalTick int64        `json:"final_tick"`
	Final     string       `json:"final"` // stage at the final tick, or "divided"
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the history and ancestry of one cell",
		Long: `Show the timeline of one cell (spawn, stage transitions, faults and the
division that created or ended it) and its chain of ancestors back to a
founder cell.

Examples:
  chlamsim trace --db ./runs.db --cell 1
  chlamsim trace --db ./runs.db --run 0192f1c2-... --cell 17 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to inspect (default: latest)")
	cmd.Flags().Int64Var(&opts.CellID, "cell", 0, "cell id to trace (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("cell")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	if opts.CellID <= 0 {
		return NewExitError(ExitCommandError, "cell id must be positive")
	}
	id := cell.ID(opts.CellID)

	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := resolveRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}

	events, err := st.ReadCellEvents(ctx, run.ID, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}
	if len(events) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("cell %d not found in run %s", id, run.ID))
	}

	ancestry, err := buildAncestry(ctx, st, run.ID, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build ancestry", err)
	}

	final, err := finalStage(ctx, st, run, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read final population", err)
	}

	result := TraceResult{
		RunID:     run.ID,
		CellID:    int64(id),
		Timeline:  buildTimeline(events, id),
		Ancestry:  ancestry,
		FinalTick: run.FinalTick,
		Final:     final,
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTimeline converts store events to trace events. A division that
// created the cell is reported as "born".
func buildTimeline(events []cell.Event, id cell.ID) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(events))
	for _, ev := range events {
		te := TraceEvent{
			Seq:     ev.Seq,
			Tick:    ev.Tick,
			Kind:    string(ev.Kind),
			Code:    ev.Code,
			Message: ev.Message,
		}
		switch ev.Kind {
		case cell.EventSpawn:
			te.To = ev.To.String()
		case cell.EventTransition:
			te.From = ev.From.String()
			te.To = ev.To.String()
		case cell.EventDivision:
			te.Daughters = []int64{int64(ev.Daughters[0]), int64(ev.Daughters[1])}
			if ev.CellID != id {
				te.Kind = "born"
				te.From = fmt.Sprintf("cell %d", ev.CellID)
			}
		}
		timeline = append(timeline, te)
	}
	return timeline
}

// buildAncestry walks division events from the cell back to its founder.
// The result starts with the cell itself.
func buildAncestry(ctx context.Context, st *store.Store, runID string, id cell.ID) ([]int64, error) {
	chain := []int64{int64(id)}
	for cur := id; ; {
		parent, ok, err := st.ParentOf(ctx, runID, cur)
		if err != nil {
			return nil, err
		}
		// Daughter ids are always larger than their parent's.
		if !ok || parent >= cur {
			return chain, nil
		}
		chain = append(chain, int64(parent))
		cur = parent
	}
}

// finalStage reports the cell's stage in the run's final snapshot.
func finalStage(ctx context.Context, st *store.Store, run store.Run, id cell.ID) (string, error) {
	pop, err := st.ReadPopulation(ctx, run.ID, run.FinalTick)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return "unknown", nil
	}
	if err != nil {
		return "", err
	}
	if s, ok := pop[id]; ok {
		return s.CellType.String(), nil
	}
	return "divided", nil
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
		RunID:  result.RunID,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for Cell %d in Run: %s\n", result.CellID, truncateID(result.RunID))
	fmt.Fprintf(w, "Final (tick %d): %s\n", result.FinalTick, result.Final)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	for _, event := range result.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Ancestry ===")
	if len(result.Ancestry) == 1 {
		fmt.Fprintln(w, "  (founder cell)")
	} else {
		for i, anc := range result.Ancestry {
			fmt.Fprintf(w, "  %*s%d\n", 2*i, "", anc)
		}
	}

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	switch event.Kind {
	case string(cell.EventSpawn):
		fmt.Fprintf(w, "  [%d] tick %d SPAWN %s\n", event.Seq, event.Tick, event.To)
	case string(cell.EventTransition):
		fmt.Fprintf(w, "  [%d] tick %d %s->%s\n", event.Seq, event.Tick, event.From, event.To)
	case string(cell.EventDivision):
		fmt.Fprintf(w, "  [%d] tick %d DIVIDE -> %d, %d\n", event.Seq, event.Tick, event.Daughters[0], event.Daughters[1])
	case "born":
		fmt.Fprintf(w, "  [%d] tick %d BORN from %s\n", event.Seq, event.Tick, event.From)
	case string(cell.EventFault):
		fmt.Fprintf(w, "  [%d] tick %d FAULT %s\n", event.Seq, event.Tick, event.Code)
		if verbose && event.Message != "" {
			fmt.Fprintf(w, "       %s\n", event.Message)
		}
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
