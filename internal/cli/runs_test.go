package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsList(t *testing.T) {
	dbPath := seedRun(t, "run-1", "10")

	stdout, _, err := execute(t, "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "run-1  complete  seed=1 tick=10/10\n", stdout)
}

func TestRunsListJSON(t *testing.T) {
	dbPath := seedRun(t, "run-1", "10")

	stdout, _, err := execute(t, "runs", "--db", dbPath, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []RunInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, RunInfo{ID: "run-1", Status: "complete", Seed: 1, Ticks: 10, FinalTick: 10}, resp.Data[0])
}
