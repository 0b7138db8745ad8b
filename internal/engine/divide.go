package engine

import (
	"log/slog"

	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/timing"
)

// Divide derives two daughter records from a dividing parent.
//
// d1 and d2 must already have been passed through Init. Both daughters
// inherit the parent's lineage fields (parentGrowth, parentAge, germTime,
// percentchance, coinflip, RNA levels and color) and then receive the
// stage-specific overrides:
//
//   - RBr and RBe parents: daughters keep the parent's stage, the default
//     target volume, a growth rate of parentGrowth·N(1, sd), and half of the
//     parent's reporter and Euo protein. RBe daughters also draw a fresh
//     coinflip each.
//   - Other defined stages: handled by Params.DivisionPolicy.
//   - Undefined stages: always rejected.
//
// Draws are consumed in daughter order: d1's growth (and coinflip), then d2's.
// On rejection the daughters are not modified and the parent should be kept.
func (e *Engine) Divide(parent, d1, d2 *cell.State) error {
	switch parent.CellType {
	case cell.RBr, cell.RBe:
		for _, d := range [2]*cell.State{d1, d2} {
			inherit(parent, d)
			d.CellType = parent.CellType
			d.TargetVol = e.params.TargetVol
			d.GrowthRate = e.params.Timing.DaughterGrowth(e.src, parent.ParentGrowth)
			if parent.CellType == cell.RBe {
				d.Coinflip = timing.Coin(e.src)
			}
		}
		for _, g := range [2]cell.Gene{cell.Reporter, cell.Euo} {
			half := parent.GeneAmt[g] / 2
			d1.GeneAmt[g] = half
			d2.GeneAmt[g] = half
		}
		return nil
	}

	err := NewUnsupportedParentError(parent.ID, parent.CellType)
	if !parent.CellType.Valid() || e.params.DivisionPolicy == DivisionReject {
		e.fault(err, slog.LevelWarn)
		return err
	}

	e.fault(err, slog.LevelDebug)
	for _, d := range [2]*cell.State{d1, d2} {
		inherit(parent, d)
		d.CellType = parent.CellType
		d.TargetVol = e.params.TargetVol
		d.GrowthRate = parent.GrowthRate
		for g := range d.GeneAmt {
			d.GeneAmt[g] = parent.GeneAmt[g] / 2
		}
	}
	return nil
}

func inherit(parent, d *cell.State) {
	d.ParentGrowth = parent.ParentGrowth
	d.ParentAge = parent.ParentAge
	d.GermTime = parent.GermTime
	d.PercentChance = parent.PercentChance
	d.Coinflip = parent.Coinflip
	d.RNAAmt = parent.RNAAmt
	d.Color = parent.Color
}
