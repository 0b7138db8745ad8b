package harness

import (
	"fmt"
	"strings"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// AssertionContext is what assertions are evaluated against: the stored
// final population and the stored event log of one run.
type AssertionContext struct {
	Population cell.Population
	Events     []cell.Event
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertFinalType:
		return assertFinalType(actx.Population, a)
	case AssertTypeCount:
		return assertTypeCount(actx.Population, a)
	case AssertNeverType:
		return assertNeverType(actx.Events, actx.Population, a)
	case AssertTransitionAt:
		return assertTransitionAt(actx.Events, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFinalType checks that a cell survived the run in the given stage.
func assertFinalType(pop cell.Population, a Assertion) error {
	want, _ := cell.ParseType(a.Stage)
	s, ok := pop[a.Cell]
	if !ok {
		return &AssertionError{
			Type:     AssertFinalType,
			Expected: fmt.Sprintf("cell %d in stage %s", a.Cell, want),
			Actual:   "cell is not in the final population",
		}
	}
	if s.CellType != want {
		return &AssertionError{
			Type:     AssertFinalType,
			Expected: fmt.Sprintf("cell %d in stage %s", a.Cell, want),
			Actual:   fmt.Sprintf("stage %s", s.CellType),
		}
	}
	return nil
}

// assertTypeCount checks the final number of cells in a stage.
func assertTypeCount(pop cell.Population, a Assertion) error {
	t, _ := cell.ParseType(a.Stage)
	got := pop.Counts()[t]

	var want []string
	ok := true
	if a.Count != nil {
		want = append(want, fmt.Sprintf("exactly %d", *a.Count))
		ok = ok && got == *a.Count
	}
	if a.Min != nil {
		want = append(want, fmt.Sprintf("at least %d", *a.Min))
		ok = ok && got >= *a.Min
	}
	if a.Max != nil {
		want = append(want, fmt.Sprintf("at most %d", *a.Max))
		ok = ok && got <= *a.Max
	}
	if ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertTypeCount,
		Expected: fmt.Sprintf("%s %s cells", strings.Join(want, " and "), t),
		Actual:   fmt.Sprintf("%d", got),
	}
}

// assertNeverType checks that no cell entered a stage, neither as a founder
// nor by transition, and that none holds it at the end.
func assertNeverType(events []cell.Event, pop cell.Population, a Assertion) error {
	t, _ := cell.ParseType(a.Stage)
	for _, ev := range events {
		switch ev.Kind {
		case cell.EventSpawn, cell.EventTransition, cell.EventDivision:
			if ev.To == t {
				return &AssertionError{
					Type:     AssertNeverType,
					Expected: fmt.Sprintf("no cell in stage %s", t),
					Actual:   fmt.Sprintf("cell %d entered %s at tick %d (%s)", ev.CellID, t, ev.Tick, ev.Kind),
				}
			}
		}
	}
	if n := pop.Counts()[t]; n > 0 {
		return &AssertionError{
			Type:     AssertNeverType,
			Expected: fmt.Sprintf("no cell in stage %s", t),
			Actual:   fmt.Sprintf("%d at the end of the run", n),
		}
	}
	return nil
}

// assertTransitionAt checks that a cell made a transition, optionally at or
// within bounds on the tick.
func assertTransitionAt(events []cell.Event, a Assertion) error {
	from, _ := cell.ParseType(a.From)
	to, _ := cell.ParseType(a.To)

	var seen []string
	for _, ev := range events {
		if ev.Kind != cell.EventTransition || ev.CellID != a.Cell {
			continue
		}
		seen = append(seen, fmt.Sprintf("%s->%s@%d", ev.From, ev.To, ev.Tick))
		if ev.From != from || ev.To != to {
			continue
		}
		if tickMatches(ev.Tick, a) {
			return nil
		}
	}

	actual := "no transitions"
	if len(seen) > 0 {
		actual = strings.Join(seen, ", ")
	}
	return &AssertionError{
		Type:     AssertTransitionAt,
		Expected: fmt.Sprintf("cell %d %s->%s %s", a.Cell, from, to, describeTick(a)),
		Actual:   actual,
	}
}

func tickMatches(tick int64, a Assertion) bool {
	if a.Tick != nil && tick != *a.Tick {
		return false
	}
	if a.MinTick != nil && tick < *a.MinTick {
		return false
	}
	if a.MaxTick != nil && tick > *a.MaxTick {
		return false
	}
	return true
}

func describeTick(a Assertion) string {
	switch {
	case a.Tick != nil:
		return fmt.Sprintf("at tick %d", *a.Tick)
	case a.MinTick != nil && a.MaxTick != nil:
		return fmt.Sprintf("between ticks %d and %d", *a.MinTick, *a.MaxTick)
	case a.MinTick != nil:
		return fmt.Sprintf("at or after tick %d", *a.MinTick)
	case a.MaxTick != nil:
		return fmt.Sprintf("at or before tick %d", *a.MaxTick)
	}
	return "at any tick"
}
