package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/store"
)

func TestReplayDeterministic(t *testing.T) {
	dbPath := seedRun(t, "run-1", "150")

	stdout, _, err := execute(t, "replay", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Replay: run-1")
	assert.Contains(t, stdout, "Snapshots: 16")
	assert.Contains(t, stdout, "✓ Run verified deterministic")
}

func TestReplayJSON(t *testing.T) {
	dbPath := seedRun(t, "run-1", "60")

	stdout, _, err := execute(t, "replay", "--db", dbPath, "--run", "run-1", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		RunID  string       `json:"run_id"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.RunID)
	assert.True(t, resp.Data.Deterministic)
	assert.True(t, resp.Data.EventsMatch)
	assert.True(t, resp.Data.FinalMatch)
	assert.Empty(t, resp.Data.Mismatches)
	assert.Equal(t, 7, resp.Data.Snapshots)
}

func TestReplayDetectsTamperedDigest(t *testing.T) {
	dbPath := seedRun(t, "run-1", "100")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		`UPDATE snapshots SET digest = 'tampered' WHERE run_id = ? AND tick = ?`, "run-1", 50)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := execute(t, "replay", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ tick 50: stored tampered")
	assert.Contains(t, stdout, "✗ Determinism verification failed")
}

func TestReplayDetectsTamperedEvent(t *testing.T) {
	dbPath := seedRun(t, "run-1", "30")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		`UPDATE events SET to_type = 5 WHERE run_id = ? AND seq = 1`, "run-1")
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := execute(t, "replay", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ event log differs")
}

func TestReplayRunNotFound(t *testing.T) {
	dbPath := seedRun(t, "run-1", "10")

	_, _, err := execute(t, "replay", "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found")
}

func TestReplayMissingDatabase(t *testing.T) {
	_, _, err := execute(t, "replay", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}
