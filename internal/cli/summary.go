package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/report"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
)

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	Database string
	RunID    string
	CSV      string // optional - write counts per snapshot as CSV
	Chart    string // optional - write a PNG chart
}

// SummaryRow is the stage census of one snapshot.
type SummaryRow struct {
	Tick   int64          `json:"tick"`
	Cells  int            `json:"cells"`
	Counts map[string]int `json:"counts"`
}

// SummaryResult holds the population summary of a run.
type SummaryResult struct {
	RunID     string       `json:"run_id"`
	Status    string       `json:"status"`
	Seed      int64        `json:"seed"`
	FinalTick int64        `json:"final_tick"`
	Snapshots []SummaryRow `json:"snapshots"`
	PeakEB    *SummaryRow  `json:"peak_eb,omitempty"`
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize stage counts of a stored run",
		Long: `Print the number of cells in each developmental stage at every stored
snapshot of a run, optionally exporting the table as CSV and a PNG chart.

Examples:
  chlamsim summary --db ./runs.db
  chlamsim summary --db ./runs.db --csv counts.csv --chart counts.png`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to summarize (default: latest)")
	cmd.Flags().StringVar(&opts.CSV, "csv", "", "write stage counts to this CSV file")
	cmd.Flags().StringVar(&opts.Chart, "chart", "", "write a PNG chart to this file")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSummary(opts *SummaryOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := resolveRun(ctx, st, opts.RunID)
	if err != nil {
		return err
	}

	snaps, err := st.ReadSnapshots(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshots", err)
	}

	if opts.CSV != "" {
		if err := writeFile(opts.CSV, func(f *os.File) error {
			return report.WriteCSV(f, snaps)
		}); err != nil {
			return err
		}
		formatter.VerboseLog("wrote %s", opts.CSV)
	}

	if opts.Chart != "" {
		if len(snaps) < 2 {
			return WrapExitError(ExitCommandError, "cannot chart run", report.ErrTooFewSnapshots)
		}
		title := fmt.Sprintf("run %s (seed %d)", truncateID(run.ID), run.Seed)
		if err := writeFile(opts.Chart, func(f *os.File) error {
			return report.Chart(f, snaps, title)
		}); err != nil {
			return err
		}
		formatter.VerboseLog("wrote %s", opts.Chart)
	}

	result := SummaryResult{
		RunID:     run.ID,
		Status:    run.Status,
		Seed:      run.Seed,
		FinalTick: run.FinalTick,
		Snapshots: make([]SummaryRow, 0, len(snaps)),
	}
	for _, s := range snaps {
		result.Snapshots = append(result.Snapshots, summaryRow(s))
	}
	if peak, ok := report.Peak(snaps, cell.EB); ok {
		row := summaryRow(peak)
		result.PeakEB = &row
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputSummaryText(cmd, result)
	return nil
}

func summaryRow(s store.Snapshot) SummaryRow {
	return SummaryRow{Tick: s.Tick, Cells: s.Cells, Counts: countsByName(s.Counts)}
}

// outputSummaryText prints one line per snapshot with a column per stage.
// Counts are grouped by thousands.
func outputSummaryText(cmd *cobra.Command, result SummaryResult) {
	w := cmd.OutOrStdout()
	p := message.NewPrinter(language.English)

	fmt.Fprintf(w, "Run: %s (%s, seed %d, tick %d)\n", result.RunID, result.Status, result.Seed, result.FinalTick)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%6s %6s", "tick", "cells")
	for t := cell.Type(0); t < cell.NumTypes; t++ {
		fmt.Fprintf(w, " %11s", t)
	}
	fmt.Fprintln(w)

	for _, row := range result.Snapshots {
		p.Fprintf(w, "%6d %6d", row.Tick, row.Cells)
		for t := cell.Type(0); t < cell.NumTypes; t++ {
			p.Fprintf(w, " %11d", row.Counts[t.String()])
		}
		fmt.Fprintln(w)
	}

	if result.PeakEB != nil {
		fmt.Fprintln(w)
		p.Fprintf(w, "Peak EB: %d at tick %d\n", result.PeakEB.Counts[cell.EB.String()], result.PeakEB.Tick)
	}
}
