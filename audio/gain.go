package audio

import "math"

// gainState holds the capture gain in decibels together with the derived
// linear amplification factor. All access happens under the engine lock.
type gainState struct {
	minDb  float64
	maxDb  float64
	gain   float64
	factor float64
}

func newGainState(minDb, maxDb float64) gainState {
	return gainState{
		minDb:  minDb,
		maxDb:  maxDb,
		gain:   0,
		factor: 0,
	}
}

// set clamps dB into [minDb, maxDb] and recomputes the linear factor.
func (g *gainState) set(dB float64) {
	g.gain = clampFloat(dB, g.minDb, g.maxDb)
	g.factor = math.Pow(10.0, g.gain/20.0)
}

// setMin updates the lower bound. The stored gain is deliberately not
// reclamped; it keeps its value until the next set call.
func (g *gainState) setMin(dB float64) {
	g.minDb = dB
}

// setMax updates the upper bound, without reclamping the stored gain.
func (g *gainState) setMax(dB float64) {
	g.maxDb = dB
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
