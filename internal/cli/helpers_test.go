package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/culture"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// seedRun simulates ticks ticks of the default culture into a fresh
// database under a fixed run id and returns the database path.
func seedRun(t *testing.T, runID string, ticks string) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      culture.NewFixedGenerator(runID),
	}
	cmd := newRunCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "--ticks", ticks})
	require.NoError(t, cmd.Execute())

	return dbPath
}

type cellDivision struct {
	parent, d1, d2 cell.ID
}

// seedDivisions writes a finished run whose event log holds only the given
// divisions, one per tick, and whose final snapshot holds the last
// daughters as RBr cells.
func seedDivisions(t *testing.T, runID string, divisions []cellDivision) string {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	final := int64(len(divisions))
	require.NoError(t, st.CreateRun(ctx, store.Run{ID: runID, Seed: 1, Ticks: final, Config: "{}"}))

	events := make([]cell.Event, 0, len(divisions))
	for i, d := range divisions {
		events = append(events, cell.Event{
			Seq:       int64(i + 1),
			Tick:      int64(i + 1),
			Kind:      cell.EventDivision,
			CellID:    d.parent,
			From:      cell.RBr,
			To:        cell.RBr,
			Daughters: [2]cell.ID{d.d1, d.d2},
		})
	}
	sink := st.Sink(runID)
	require.NoError(t, sink.WriteEvents(ctx, events))

	last := divisions[len(divisions)-1]
	pop := cell.Population{
		last.d1: {ID: last.d1, CellType: cell.RBr},
		last.d2: {ID: last.d2, CellType: cell.RBr},
	}
	require.NoError(t, sink.WriteSnapshot(ctx, final, pop, "digest"))
	require.NoError(t, st.FinishRun(ctx, runID, store.StatusComplete, final, "digest"))

	return dbPath
}
