// Package config loads simulation configuration written in CUE.
//
// A configuration file is unified with an embedded schema that closes the
// set of fields and supplies every default, so a file only names what it
// changes. Stored runs keep their resolved configuration as JSON, which is
// itself valid CUE and goes back through the same path on replay.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/culture"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/engine"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

//go:embed schema.cue
var schemaSrc string

// Error codes for configuration failures.
const (
	ErrCodeRead    = "CONFIG_READ"
	ErrCodeSyntax  = "CONFIG_SYNTAX"
	ErrCodeInvalid = "CONFIG_INVALID"
	ErrCodeDecode  = "CONFIG_DECODE"
)

// Error is a configuration failure with its CUE position when known.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// fromCUE converts the first error of a CUE error list.
func fromCUE(code string, err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error(), Err: err}
	}
	first := errs[0]
	format, args := first.Msg()
	msg := fmt.Sprintf(format, args...)
	if path := first.Path(); len(path) > 0 {
		msg = strings.Join(path, ".") + ": " + msg
	}
	return &Error{Code: code, Message: msg, Pos: first.Position(), Err: err}
}

// Founder places count initial cells of one stage.
type Founder struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Stage parses the founder's stage name.
func (f Founder) Stage() (cell.Type, error) {
	return cell.ParseType(f.Type)
}

// Rates holds the gene-expression and reaction constants. Both halves are
// embedded, so they share one flat "rates" object in CUE and JSON.
type Rates struct {
	engine.Rates
	engine.Reactions
}

// Config is a resolved simulation configuration.
type Config struct {
	Seed          int64 `json:"seed"`
	Ticks         int64 `json:"ticks"`
	SnapshotEvery int64 `json:"snapshot_every"`
	MaxCells      int   `json:"max_cells"`

	InitialVolume float64 `json:"initial_volume"`
	GrowthStep    float64 `json:"growth_step"`

	DivisionPolicy string  `json:"division_policy"`
	DormantAfter   float64 `json:"dormant_after"`

	TargetVol     float64 `json:"target_vol"`
	HctAThreshold float64 `json:"hcta_threshold"`
	HctBThreshold float64 `json:"hctb_threshold"`

	Timing   timing.Model `json:"timing"`
	Rates    Rates        `json:"rates"`
	Founders []Founder    `json:"founders"`
}

// Load reads and resolves a CUE configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, Message: err.Error(), Err: err}
	}
	return Parse(data, path)
}

// Default returns the configuration of an empty file.
func Default() *Config {
	cfg, err := Parse(nil, "default.cue")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema is broken: %v", err))
	}
	return cfg
}

// Parse resolves CUE (or JSON) source against the schema. filename is used
// in error positions only.
func Parse(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fromCUE(ErrCodeSyntax, err)
	}

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return nil, fromCUE(ErrCodeSyntax, err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(ErrCodeInvalid, err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fromCUE(ErrCodeDecode, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Message: err.Error(), Err: err}
	}
	return &cfg, nil
}

// Validate checks what the schema cannot express.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	for i, f := range c.Founders {
		if _, err := f.Stage(); err != nil {
			return fmt.Errorf("founders[%d]: %w", i, err)
		}
	}
	return nil
}

// Params returns the engine parameters.
func (c *Config) Params() engine.Params {
	return engine.Params{
		Timing:         c.Timing,
		Rates:          c.Rates.Rates,
		Reactions:      c.Rates.Reactions,
		TargetVol:      c.TargetVol,
		HctAThreshold:  c.HctAThreshold,
		HctBThreshold:  c.HctBThreshold,
		DormantAfter:   c.DormantAfter,
		DivisionPolicy: engine.DivisionPolicy(c.DivisionPolicy),
	}
}

// Culture returns the host settings.
func (c *Config) Culture() culture.Config {
	return culture.Config{
		InitialVolume: c.InitialVolume,
		GrowthStep:    c.GrowthStep,
		MaxCells:      c.MaxCells,
		SnapshotEvery: c.SnapshotEvery,
	}
}

// Populate places the configured founders in the culture, in order.
func (c *Config) Populate(cult *culture.Culture) error {
	for i, f := range c.Founders {
		t, err := f.Stage()
		if err != nil {
			return fmt.Errorf("founders[%d]: %w", i, err)
		}
		for n := 0; n < f.Count; n++ {
			cult.Spawn(t, nil)
		}
	}
	return nil
}

// JSON returns the resolved configuration as indented JSON.
func (c *Config) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
