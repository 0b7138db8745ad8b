package engine

import (
	"errors"
	"fmt"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// RuntimeError represents a fault detected while stepping or dividing cells.
//
// Runtime errors include:
//   - Unknown cell type: a record carries a stage outside 0..6
//   - Unsupported division parent: Divide called for a stage with no rule
//   - Degenerate modulus: dormant release check with parentAge == 0
//   - Corrupt population: nil map, nil record, or key/id mismatch
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// CellID identifies the affected cell, when there is one.
	CellID cell.ID

	// Tick is the simulation tick the fault occurred at (-1 for Divide).
	Tick int64

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownCellType indicates a stage outside the defined set.
	ErrCodeUnknownCellType RuntimeErrorCode = "UNKNOWN_CELL_TYPE"

	// ErrCodeUnsupportedDivisionParent indicates Divide has no rule for the parent stage.
	ErrCodeUnsupportedDivisionParent RuntimeErrorCode = "UNSUPPORTED_DIVISION_PARENT"

	// ErrCodeDegenerateModulus indicates the dormant release check hit parentAge == 0.
	ErrCodeDegenerateModulus RuntimeErrorCode = "DEGENERATE_MODULUS"

	// ErrCodeCorruptPopulation indicates the population map itself is unusable.
	ErrCodeCorruptPopulation RuntimeErrorCode = "CORRUPT_POPULATION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.CellID != 0 && e.Tick >= 0 {
		return fmt.Sprintf("%s: %s (cell=%d, tick=%d)", e.Code, e.Message, e.CellID, e.Tick)
	}
	if e.CellID != 0 {
		return fmt.Sprintf("%s: %s (cell=%d)", e.Code, e.Message, e.CellID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsUnknownCellType returns true if the error is an unknown cell type fault.
// Uses errors.As to handle wrapped errors.
func IsUnknownCellType(err error) bool {
	return hasCode(err, ErrCodeUnknownCellType)
}

// IsUnsupportedDivisionParent returns true if Divide rejected the parent.
func IsUnsupportedDivisionParent(err error) bool {
	return hasCode(err, ErrCodeUnsupportedDivisionParent)
}

// IsDegenerateModulus returns true for the dormant-check fault of a cell
// that has never divided.
func IsDegenerateModulus(err error) bool {
	return hasCode(err, ErrCodeDegenerateModulus)
}

// IsCorruptPopulation returns true if Update refused the population.
func IsCorruptPopulation(err error) bool {
	return hasCode(err, ErrCodeCorruptPopulation)
}

// NewUnknownCellTypeError creates a RuntimeError for an undefined stage.
func NewUnknownCellTypeError(id cell.ID, t cell.Type, tick int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownCellType,
		Message: fmt.Sprintf("cell type %d is not a defined stage", int(t)),
		CellID:  id,
		Tick:    tick,
		Details: map[string]string{"cell_type": fmt.Sprintf("%d", int(t))},
	}
}

// NewUnsupportedParentError creates a RuntimeError for a parent stage
// with no division rule.
func NewUnsupportedParentError(id cell.ID, t cell.Type) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnsupportedDivisionParent,
		Message: fmt.Sprintf("no division rule for %s parent", t),
		CellID:  id,
		Tick:    -1,
		Details: map[string]string{"cell_type": t.String()},
	}
}

// NewDegenerateModulusError creates a RuntimeError for the dormant release
// check of a cell that has never requested division.
func NewDegenerateModulusError(id cell.ID, tick int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDegenerateModulus,
		Message: "parentAge is zero; dormant release skipped",
		CellID:  id,
		Tick:    tick,
	}
}

// NewCorruptPopulationError creates a RuntimeError for an unusable population.
func NewCorruptPopulationError(message string, id cell.ID, tick int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCorruptPopulation,
		Message: message,
		CellID:  id,
		Tick:    tick,
	}
}
