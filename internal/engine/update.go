package engine

import (
	"log/slog"
	"math"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// MatureColor is the color of an infectious EB.
var MatureColor = cell.Color{2.0, 0.0, 0.5}

// Update steps every cell of the population once at the given tick.
//
// The tick's maturation rate is drawn first, then cells are visited in
// ascending id order. Per-cell faults are logged and skipped. The returned
// error is non-nil only for a corrupt population, in which case no cell has
// been modified and no draw has been consumed.
func (e *Engine) Update(pop cell.Population, tick int64) error {
	if pop == nil {
		return NewCorruptPopulationError("population is nil", 0, tick)
	}
	ids := pop.IDs()
	for _, id := range ids {
		s := pop[id]
		if s == nil {
			return NewCorruptPopulationError("nil cell record", id, tick)
		}
		if s.ID != id {
			return NewCorruptPopulationError("record id does not match its key", id, tick)
		}
	}

	rate := e.params.Timing.MaturationRate(e.src)
	for _, id := range ids {
		e.step(pop[id], tick, rate)
	}
	return nil
}

func (e *Engine) step(s *cell.State, tick int64, rate float64) {
	if !s.CellType.Valid() {
		e.fault(NewUnknownCellTypeError(s.ID, s.CellType, tick), slog.LevelWarn)
		return
	}

	t2 := timing.Decade(tick)
	if float64(tick) >= s.GermTime {
		s.PercentChance[0] = e.params.Timing.Curve.Percent(t2, rate)
	}

	if s.Volume > s.TargetVol {
		s.DivideFlag = true
		s.ParentAge = float64(s.CellAge) / 10
	}

	// Stage handlers form a chain; see the package documentation.
	if s.CellType == cell.Germinating {
		e.germinate(s, tick)
	}
	if s.CellType == cell.RBr {
		e.replicate(s, tick, t2)
	}
	if s.CellType == cell.RBe {
		e.commit(s, tick, t2)
	}
	if s.CellType == cell.Dormant {
		e.rest(s, tick)
	}
	if s.CellType == cell.IB {
		e.condense(s, tick)
	}
	if s.CellType == cell.PreEB {
		e.mature(s, tick)
	}
	if s.CellType == cell.EB {
		e.infectious(s)
	}
}

func (e *Engine) germinate(s *cell.State, tick int64) {
	s.DivideFlag = false
	s.GrowthRate = 0
	s.Coinflip = 1
	if float64(tick) >= s.GermTime {
		e.transition(s, cell.RBr, tick)
		s.GrowthRate = e.params.Timing.GrowthRate(e.src)
		s.ParentGrowth = s.GrowthRate
	}
}

func (e *Engine) replicate(s *cell.State, tick int64, t2 float64) {
	e.expressEuo(s)
	s.GeneAmt[cell.Reporter] = 0
	s.GeneAmt[cell.HctA] = 0
	s.GeneAmt[cell.HctB] = 0
	s.Color = euoColor(s.GeneAmt[cell.Euo])

	if timing.OnDecade(tick) && timing.Commit(e.src, s.PercentChance[0]) {
		e.transition(s, cell.RBe, tick)
		e.expressEuo(s)
		s.Color = euoColor(s.GeneAmt[cell.Euo])
		return
	}

	if e.dormantDue(t2) {
		e.enterDormant(s, tick)
	}
}

func (e *Engine) commit(s *cell.State, tick int64, t2 float64) {
	e.expressEuo(s)
	if s.Coinflip == 0 {
		e.transition(s, cell.IB, tick)
		return
	}

	if e.dormantDue(t2) {
		e.enterDormant(s, tick)
	}
}

func (e *Engine) dormantDue(t2 float64) bool {
	return e.params.DormantAfter > 0 && t2 >= e.params.DormantAfter
}

func (e *Engine) enterDormant(s *cell.State, tick int64) {
	e.transition(s, cell.Dormant, tick)
	s.Color = euoColor(s.GeneAmt[cell.Euo])
	s.GrowthRate = 0
	s.GeneAmt[cell.Euo] -= e.params.Rates.N1 * s.GeneAmt[cell.Euo]
	s.GeneAmt[cell.HctA] = 0
	s.GeneAmt[cell.HctB] = 0
}

func (e *Engine) rest(s *cell.State, tick int64) {
	r := e.params.Rates
	s.Color = euoColor(s.GeneAmt[cell.Euo])
	s.GrowthRate = 0
	s.GeneAmt[cell.Euo] -= r.N1 * s.GeneAmt[cell.Euo]

	if s.ParentAge == 0 {
		e.fault(NewDegenerateModulusError(s.ID, tick), slog.LevelDebug)
		return
	}
	if math.Mod(float64(s.CellAge)/10, s.ParentAge) == 0 && timing.Coin(e.src) == 0 {
		e.transition(s, cell.IB, tick)
	}
}

func (e *Engine) condense(s *cell.State, tick int64) {
	r := e.params.Rates
	pg := s.ParentGrowth
	s.GrowthRate = 0

	s.GeneAmt[cell.Euo] -= r.N1 * pg * s.GeneAmt[cell.Euo]

	s.RNAAmt[cell.HctA] += r.PR2*pg - r.NR2*s.RNAAmt[cell.HctA]
	s.GeneAmt[cell.HctA] += r.P2*pg*s.RNAAmt[cell.HctA] - r.N2*pg*s.GeneAmt[cell.HctA]

	// The reporter protein is stable: no decay term.
	s.RNAAmt[cell.Reporter] += r.PR2*pg - r.NR2*s.RNAAmt[cell.Reporter]
	s.GeneAmt[cell.Reporter] += r.P2 * pg * s.RNAAmt[cell.Reporter]

	s.Color = cell.Color{0, 0, s.GeneAmt[cell.HctA] * 5}
	if s.GeneAmt[cell.HctA] >= e.params.HctAThreshold {
		e.transition(s, cell.PreEB, tick)
	}
}

func (e *Engine) mature(s *cell.State, tick int64) {
	e.expressHctB(s)
	s.GrowthRate = 0
	s.Color = cell.Color{
		s.GeneAmt[cell.HctB] / 10,
		0,
		s.GeneAmt[cell.HctB]/40 + s.GeneAmt[cell.HctA]/7,
	}
	if s.GeneAmt[cell.HctB] >= e.params.HctBThreshold {
		e.transition(s, cell.EB, tick)
	}
}

func (e *Engine) infectious(s *cell.State) {
	e.expressHctB(s)
	s.Color = MatureColor
}

// expressEuo integrates Euo RNA then protein one step, scaled by the cell's
// own growth rate.
func (e *Engine) expressEuo(s *cell.State) {
	r := e.params.Rates
	g := s.GrowthRate
	s.RNAAmt[cell.Euo] += r.PR1*g - r.NR1*s.RNAAmt[cell.Euo]*g
	s.GeneAmt[cell.Euo] += r.P1*g*s.RNAAmt[cell.Euo] - r.N1*g*s.GeneAmt[cell.Euo]
}

// expressHctB decays HctA and integrates HctB, scaled by the lineage growth.
// The reporter is left unchanged.
func (e *Engine) expressHctB(s *cell.State) {
	r := e.params.Rates
	pg := s.ParentGrowth
	s.GeneAmt[cell.HctA] -= r.N2 * pg * s.GeneAmt[cell.HctA]
	s.RNAAmt[cell.HctB] += r.PR3*pg - r.NR3*s.RNAAmt[cell.HctB]
	s.GeneAmt[cell.HctB] += r.P3*pg*s.RNAAmt[cell.HctB] - r.N3*pg*s.GeneAmt[cell.HctB]
}

// euoColor fades from white toward green as Euo accumulates. Levels whose
// reciprocal is not finite (zero, or subnormal after long decay) map to a
// zero component so the record stays JSON-encodable.
func euoColor(euo float64) cell.Color {
	inv := 1 / euo
	if math.IsInf(inv, 0) || math.IsNaN(inv) {
		inv = 0
	}
	return cell.Color{inv, 1, inv}
}
