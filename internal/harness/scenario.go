package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// Scenario defines one developmental-cycle test.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed seeds the run's random stream.
	Seed int64 `yaml:"seed"`

	// Ticks is the number of ticks to run.
	Ticks int64 `yaml:"ticks"`

	// Config is optional CUE applied on top of the defaults.
	Config string `yaml:"config,omitempty"`

	// Cells lists the founder cells, placed in order with ids from 1.
	// Config founders are ignored when Cells is set.
	Cells []CellSpec `yaml:"cells"`

	// Assertions are checked against the stored run.
	Assertions []Assertion `yaml:"assertions"`
}

// CellSpec places one or more founder cells. Unset fields keep the values
// from initialization.
type CellSpec struct {
	Type         string    `yaml:"type"`
	Count        int       `yaml:"count,omitempty"`
	Volume       *float64  `yaml:"volume,omitempty"`
	GrowthRate   *float64  `yaml:"growth_rate,omitempty"`
	ParentGrowth *float64  `yaml:"parent_growth,omitempty"`
	ParentAge    *float64  `yaml:"parent_age,omitempty"`
	Coinflip     *int      `yaml:"coinflip,omitempty"`
	GeneAmt      []float64 `yaml:"geneamt,omitempty"`
}

// apply copies the set fields onto s.
func (c CellSpec) apply(s *cell.State) {
	if c.Volume != nil {
		s.Volume = *c.Volume
	}
	if c.GrowthRate != nil {
		s.GrowthRate = *c.GrowthRate
	}
	if c.ParentGrowth != nil {
		s.ParentGrowth = *c.ParentGrowth
	}
	if c.ParentAge != nil {
		s.ParentAge = *c.ParentAge
	}
	if c.Coinflip != nil {
		s.Coinflip = *c.Coinflip
	}
	copy(s.GeneAmt[:], c.GeneAmt)
}

// Assertion validates the final population or the event log.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_type": Cell is alive at the end in Stage
	// - "type_count": Final number of cells in Stage
	// - "never_type": No cell ever entered Stage
	// - "transition_at": Cell made a From→To transition
	Type string `yaml:"type"`

	// Cell is the cell id (final_type, transition_at).
	Cell cell.ID `yaml:"cell,omitempty"`

	// Stage is a stage name (final_type, type_count, never_type).
	Stage string `yaml:"stage,omitempty"`

	// Count, Min and Max bound the final count (type_count).
	Count *int `yaml:"count,omitempty"`
	Min   *int `yaml:"min,omitempty"`
	Max   *int `yaml:"max,omitempty"`

	// From and To name the transition (transition_at).
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Tick pins the transition tick; MinTick and MaxTick bound it.
	Tick    *int64 `yaml:"tick,omitempty"`
	MinTick *int64 `yaml:"min_tick,omitempty"`
	MaxTick *int64 `yaml:"max_tick,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalType    = "final_type"
	AssertTypeCount    = "type_count"
	AssertNeverType    = "never_type"
	AssertTransitionAt = "transition_at"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Ticks <= 0 {
		return fmt.Errorf("ticks must be positive")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, c := range s.Cells {
		if _, err := cell.ParseType(c.Type); err != nil {
			return fmt.Errorf("cells[%d]: %w", i, err)
		}
		if c.Count < 0 {
			return fmt.Errorf("cells[%d]: count must be non-negative", i)
		}
		if len(c.GeneAmt) > cell.NumGenes {
			return fmt.Errorf("cells[%d]: geneamt has %d values, at most %d allowed", i, len(c.GeneAmt), cell.NumGenes)
		}
		if c.Coinflip != nil && *c.Coinflip != 0 && *c.Coinflip != 1 {
			return fmt.Errorf("cells[%d]: coinflip must be 0 or 1", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	stage := func() error {
		if _, err := cell.ParseType(a.Stage); err != nil {
			return fmt.Errorf("assertions[%d]: stage: %w", index, err)
		}
		return nil
	}

	switch a.Type {
	case AssertFinalType:
		if a.Cell == 0 {
			return fmt.Errorf("assertions[%d]: cell is required for final_type", index)
		}
		return stage()
	case AssertTypeCount:
		if a.Count == nil && a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: count, min or max is required for type_count", index)
		}
		return stage()
	case AssertNeverType:
		return stage()
	case AssertTransitionAt:
		if a.Cell == 0 {
			return fmt.Errorf("assertions[%d]: cell is required for transition_at", index)
		}
		if _, err := cell.ParseType(a.From); err != nil {
			return fmt.Errorf("assertions[%d]: from: %w", index, err)
		}
		if _, err := cell.ParseType(a.To); err != nil {
			return fmt.Errorf("assertions[%d]: to: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
