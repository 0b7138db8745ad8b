// Package timing implements the stochastic timing model of the developmental
// cycle: germination delay, the logistic RBr→RBe maturation curve and the
// Bernoulli branch draws.
//
// All randomness flows through a Source so a run is reproducible from its
// seed and tests can script exact draws.
package timing

import (
	"math"
	"math/rand"
)

// Source is the random stream consumed by the model.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	NormFloat64() float64
	Intn(n int) int
}

// NewSource returns a seeded stream for one run.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Uniform draws from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Jitter draws uniformly from center ± halfWidth.
func Jitter(src Source, center, halfWidth float64) float64 {
	return Uniform(src, center-halfWidth, center+halfWidth)
}

// Normal draws from N(mean, sd).
func Normal(src Source, mean, sd float64) float64 {
	return mean + sd*src.NormFloat64()
}

// Coin returns 0 or 1 with equal probability.
func Coin(src Source) int {
	return src.Intn(2)
}

// Model holds the parameters of the timing draws and the maturation curve.
type Model struct {
	GermMean   float64 `json:"germ_mean"`
	GermJitter float64 `json:"germ_jitter"`

	GrowthMean   float64 `json:"growth_mean"`
	GrowthJitter float64 `json:"growth_jitter"`

	// DaughterGrowthSD is the relative spread of a daughter's growth rate
	// around its lineage's parentGrowth.
	DaughterGrowthSD float64 `json:"daughter_growth_sd"`

	MaturationJitter float64 `json:"maturation_jitter"`

	Curve Curve `json:"curve"`
}

// DefaultModel returns the parameters fitted to live-cell data.
func DefaultModel() Model {
	return Model{
		GermMean:         100,
		GermJitter:       20,
		GrowthMean:       1.0,
		GrowthJitter:     0.05,
		DaughterGrowthSD: 0.05,
		MaturationJitter: 0.05,
		Curve:            DefaultCurve(),
	}
}

// GermTime draws the tick after which a germinating cell may become RBr.
func (m Model) GermTime(src Source) float64 {
	return Jitter(src, m.GermMean, m.GermJitter)
}

// GrowthRate draws a fresh growth rate.
func (m Model) GrowthRate(src Source) float64 {
	return Jitter(src, m.GrowthMean, m.GrowthJitter)
}

// DaughterGrowth draws a daughter's growth rate from its lineage growth.
func (m Model) DaughterGrowth(src Source, parentGrowth float64) float64 {
	return parentGrowth * Normal(src, 1, m.DaughterGrowthSD)
}

// MaturationRate draws the process-wide multiplier for one tick.
func (m Model) MaturationRate(src Source) float64 {
	return Jitter(src, 1.0, m.MaturationJitter)
}

// Curve is a logistic curve giving the percent chance of RBr→RBe conversion
// as a function of scaled time.
type Curve struct {
	Amplitude float64 `json:"amplitude"`
	Midpoint  float64 `json:"midpoint"`
	Steepness float64 `json:"steepness"`
	Floor     float64 `json:"floor"`
}

// DefaultCurve returns the curve fitted to live-cell conversion data.
func DefaultCurve() Curve {
	return Curve{
		Amplitude: 97.81,
		Midpoint:  21.5841312,
		Steepness: 0.677630536,
		Floor:     2.19,
	}
}

// Percent evaluates the curve at t2 scaled by rate. The result lies in
// (Floor, Floor+Amplitude) and is non-decreasing in t2·rate.
func (c Curve) Percent(t2, rate float64) float64 {
	return c.Amplitude/(1+math.Exp((c.Midpoint-t2*rate)*c.Steepness)) + c.Floor
}

// Decade returns tick/10, the time scale of the maturation curve.
func Decade(tick int64) float64 {
	return float64(tick) / 10
}

// OnDecade reports whether Decade(tick) is a whole number.
func OnDecade(tick int64) bool {
	return tick%10 == 0
}

// Commit draws uniform(0,100) and reports whether it falls at or below percent.
func Commit(src Source, percent float64) bool {
	return Uniform(src, 0, 100) <= percent
}
