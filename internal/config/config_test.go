package config

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/culture"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/engine"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

func TestDefault_MatchesPackageDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(1), cfg.Seed)
	assert.Equal(t, int64(500), cfg.Ticks)
	if diff := cmp.Diff(engine.DefaultParams(), cfg.Params()); diff != "" {
		t.Errorf("engine params mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, culture.DefaultConfig(), cfg.Culture())
	assert.Equal(t, []Founder{{Type: "germinating", Count: 1}}, cfg.Founders)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "dormant.cue"))
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, int64(400), cfg.Ticks)
	assert.Equal(t, 30.0, cfg.DormantAfter)

	p := cfg.Params()
	assert.Equal(t, engine.DivisionReject, p.DivisionPolicy)
	assert.Equal(t, 0.03, p.Rates.PR1)
	assert.Equal(t, 0.1, p.Rates.N1)
	assert.Equal(t, engine.DefaultRates().NR1, p.Rates.NR1, "unset rates keep their defaults")
	assert.Equal(t, timing.DefaultModel(), p.Timing)

	assert.Equal(t, []Founder{
		{Type: "germinating", Count: 3},
		{Type: "RBr", Count: 1},
	}, cfg.Founders)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeRead, cfgErr.Code)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"syntax", `seed: {`, ErrCodeSyntax},
		{"unknown field", `colour: "green"`, ErrCodeInvalid},
		{"bad policy", `division_policy: "split"`, ErrCodeInvalid},
		{"negative ticks", `ticks: -1`, ErrCodeInvalid},
		{"zero target volume", `target_vol: 0`, ErrCodeInvalid},
		{"unknown founder stage", `founders: [{type: "spore"}]`, ErrCodeInvalid},
		{"zero founder count", `founders: [{type: "EB", count: 0}]`, ErrCodeInvalid},
		{"unknown rate", `rates: {pr4: 1}`, ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "test.cue")
			require.Error(t, err)

			var cfgErr *Error
			require.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
			assert.Equal(t, tt.code, cfgErr.Code, cfgErr.Error())
		})
	}
}

func TestParse_JSONRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "dormant.cue"))
	require.NoError(t, err)

	data, err := cfg.JSON()
	require.NoError(t, err)

	back, err := Parse(data, "run.json")
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_RatesShareOneObject(t *testing.T) {
	cfg, err := Parse([]byte(`rates: {pr2: 0.07, d0: 0.5}`), "rates.cue")
	require.NoError(t, err)

	p := cfg.Params()
	assert.Equal(t, 0.07, p.Rates.PR2)
	assert.Equal(t, 0.5, p.Reactions.D0)
	assert.Equal(t, engine.DefaultReactions().K1, p.Reactions.K1)

	data, err := cfg.JSON()
	require.NoError(t, err)
	var raw struct {
		Rates map[string]float64 `json:"rates"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw.Rates, 15)
	assert.Equal(t, 0.5, raw.Rates["d0"])
	assert.Equal(t, 0.07, raw.Rates["pr2"])
}

func TestPopulate(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "dormant.cue"))
	require.NoError(t, err)

	c := culture.New(cfg.Culture(), timing.NewSource(cfg.Seed), cfg.Params())
	require.NoError(t, cfg.Populate(c))

	counts := c.Population().Counts()
	assert.Equal(t, 3, counts[cell.Germinating])
	assert.Equal(t, 1, counts[cell.RBr])
	assert.Equal(t, []cell.ID{1, 2, 3, 4}, c.Population().IDs())
}

func TestError_Format(t *testing.T) {
	err := &Error{Code: ErrCodeInvalid, Message: "ticks: invalid value"}
	assert.Equal(t, "CONFIG_INVALID: ticks: invalid value", err.Error())
}
