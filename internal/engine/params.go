package engine

import (
	"fmt"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// Rates holds the transcription (pr), RNA decay (nr), translation (p) and
// protein decay (n) constants for each tracked gene group.
//
// Group 1 drives Euo in RB stages, group 2 drives HctA and the reporter in
// IB, group 3 drives HctB in preEB and EB.
type Rates struct {
	PR1 float64 `json:"pr1"`
	NR1 float64 `json:"nr1"`
	P1  float64 `json:"p1"`
	N1  float64 `json:"n1"`

	PR2 float64 `json:"pr2"`
	NR2 float64 `json:"nr2"`
	P2  float64 `json:"p2"`
	N2  float64 `json:"n2"`

	PR3 float64 `json:"pr3"`
	NR3 float64 `json:"nr3"`
	P3  float64 `json:"p3"`
	N3  float64 `json:"n3"`
}

// DefaultRates returns the fitted expression constants.
func DefaultRates() Rates {
	return Rates{
		PR1: 0.02, NR1: 0.02, P1: 0.5, N1: 0.08,
		PR2: 0.04, NR2: 0.01, P2: 1.0, N2: 0.05,
		PR3: 0.06, NR3: 0.024, P3: 0.5, N3: 0.01,
	}
}

// DivisionPolicy decides what Divide does with a parent stage that has no
// division rule.
type DivisionPolicy string

const (
	// DivisionCopy gives both daughters the parent's stage and growth rate
	// and splits every gene product evenly.
	DivisionCopy DivisionPolicy = "copy"

	// DivisionReject leaves the daughters untouched and returns an
	// UNSUPPORTED_DIVISION_PARENT error; the host keeps the parent.
	DivisionReject DivisionPolicy = "reject"
)

// Params configures an Engine.
type Params struct {
	Timing    timing.Model `json:"timing"`
	Rates     Rates        `json:"rates"`
	Reactions Reactions    `json:"reactions"`

	TargetVol float64 `json:"target_vol"`

	// HctAThreshold is the HctA level at which IB becomes preEB.
	HctAThreshold float64 `json:"hcta_threshold"`

	// HctBThreshold is the HctB level at which preEB becomes EB.
	HctBThreshold float64 `json:"hctb_threshold"`

	// DormantAfter enables entry into the dormant stage for RB cells once
	// tick/10 reaches it. Zero disables the entry.
	DormantAfter float64 `json:"dormant_after"`

	DivisionPolicy DivisionPolicy `json:"division_policy"`
}

// DefaultParams returns the shipped configuration.
func DefaultParams() Params {
	return Params{
		Timing:         timing.DefaultModel(),
		Rates:          DefaultRates(),
		Reactions:      DefaultReactions(),
		TargetVol:      2,
		HctAThreshold:  3.5,
		HctBThreshold:  20,
		DormantAfter:   0,
		DivisionPolicy: DivisionCopy,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.TargetVol <= 0 {
		return fmt.Errorf("target_vol must be positive, got %v", p.TargetVol)
	}
	if p.DormantAfter < 0 {
		return fmt.Errorf("dormant_after must not be negative, got %v", p.DormantAfter)
	}
	switch p.DivisionPolicy {
	case DivisionCopy, DivisionReject:
	default:
		return fmt.Errorf("division_policy must be %q or %q, got %q", DivisionCopy, DivisionReject, p.DivisionPolicy)
	}
	return nil
}
