package harness

import (
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`

	// Ticks is the last completed tick.
	Ticks int64 `json:"ticks"`

	// Counts is the final number of cells per stage.
	Counts [cell.NumTypes]int `json:"counts"`

	// Digest is the final population digest.
	Digest string `json:"digest"`

	// Events is the full event log of the run.
	Events []cell.Event `json:"events"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Events: []cell.Event{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
