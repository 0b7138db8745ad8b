package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunInfo is the listing entry for one stored run.
type RunInfo struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Seed      int64  `json:"seed"`
	Ticks     int64  `json:"ticks"`
	FinalTick int64  `json:"final_tick"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "runs",
		Short:         "List stored runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runListRuns(opts *RunsOptions, cmd *cobra.Command) error {
	st, err := openStore(opts.Database, true)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	infos := make([]RunInfo, 0, len(runs))
	for _, r := range runs {
		infos = append(infos, RunInfo{
			ID:        r.ID,
			Status:    r.Status,
			Seed:      r.Seed,
			Ticks:     r.Ticks,
			FinalTick: r.FinalTick,
		})
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(infos)
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, r := range infos {
		fmt.Fprintf(w, "%s  %-9s seed=%d tick=%d/%d\n", r.ID, r.Status, r.Seed, r.FinalTick, r.Ticks)
	}
	return nil
}
