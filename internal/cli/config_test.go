package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/config"
)

func TestConfigDefaultGolden(t *testing.T) {
	stdout, _, err := execute(t, "config")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "config_default", []byte(stdout))
}

func TestConfigOverrides(t *testing.T) {
	stdout, _, err := execute(t, "config", "--seed", "7", "--ticks", "42")
	require.NoError(t, err)

	// The printed configuration is itself a valid configuration.
	cfg, err := config.Parse([]byte(stdout), "printed.json")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, int64(42), cfg.Ticks)
	assert.Equal(t, config.Default().Rates, cfg.Rates)
}

func TestConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "culture.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
division_policy: "reject"
dormant_after: 30
founders: [{type: "RBr", count: 2}]
`), 0644))

	stdout, _, err := execute(t, "config", "--config", path)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(stdout), "printed.json")
	require.NoError(t, err)
	assert.Equal(t, "reject", cfg.DivisionPolicy)
	assert.Equal(t, 30.0, cfg.DormantAfter)
	assert.Equal(t, []config.Founder{{Type: "RBr", Count: 2}}, cfg.Founders)
}

func TestConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`ticks: "many"`), 0644))

	_, _, err := execute(t, "config", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "CONFIG_INVALID")
}
