package engine

// Reactions holds the constants of the reaction-rate contracts evaluated by
// the host's integrator.
type Reactions struct {
	K0 float64 `json:"k0"` // species production
	D0 float64 `json:"d0"` // species decay
	K1 float64 `json:"k1"` // signal production
}

// DefaultReactions returns the shipped reaction constants.
func DefaultReactions() Reactions {
	return Reactions{K0: 0.0, D0: 0.3, K1: 1.0}
}

// SpeciesRate maps a local species concentration vector to its rate of
// change: rate[0] = k0 - d0*species[0]. Slots beyond the first have no
// dynamics.
func (r Reactions) SpeciesRate(species []float64) []float64 {
	rates := make([]float64, len(species))
	if len(species) > 0 {
		rates[0] = r.K0 - r.D0*species[0]
	}
	return rates
}

// SignalRate maps a local signal vector to its rate of change: rate[0] = k1.
func (r Reactions) SignalRate(signals []float64) []float64 {
	rates := make([]float64, len(signals))
	if len(signals) > 0 {
		rates[0] = r.K1
	}
	return rates
}
