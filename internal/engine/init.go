package engine

import (
	"github.com/SGrasshopper/Chlamydial-developmental-cycle/internal/cell"
)

// InitialColor is the placeholder color of a freshly created cell.
var InitialColor = cell.Color{2.0, 0.5, 1.5}

// Init populates a newly allocated record with its defaults.
//
// Identity, stage, volume and age are left to the caller. Init must run
// exactly once per record, before Update or Divide touch it. It draws the
// growth rate first, then the germination time.
func (e *Engine) Init(s *cell.State) {
	s.TargetVol = e.params.TargetVol
	s.GrowthRate = e.params.Timing.GrowthRate(e.src)
	s.ParentGrowth = 0
	s.ParentAge = 0
	s.Color = InitialColor
	s.RNAAmt = cell.Levels{}
	s.GeneAmt = cell.Levels{}
	s.GermTime = e.params.Timing.GermTime(e.src)
	s.PercentChance = [2]float64{}
	s.Coinflip = 0
	s.DivideFlag = false
	s.Species = []float64{0}
	s.Signals = []float64{0}
}
