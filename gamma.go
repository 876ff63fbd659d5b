package denoise

import "math"

const gammaLUTSize = 65536

// gammaLUT is a forward/inverse pair of lookup tables built once per
// Denoise call on the driver's stack (spec.md §9: no process-wide
// singleton curves).
type gammaLUT struct {
	forward [gammaLUTSize]float32
	inverse [gammaLUTSize]float32
}

// nonRawGammaReduction is the small piecewise map spec.md §4.6 step 2
// applies to reduce gamma strength on non-raw inputs.
var nonRawGammaReduction = PiecewiseCurve{
	X: []float32{0, 0.3, 0.7, 1.0},
	Y: []float32{1.0, 0.9, 0.8, 0.75},
}

// buildGammaLUT constructs the gamma-in LUT: forward[v] = gain *
// (v/65535)^(1/gamma) * 65535, with gamma reduced on non-raw inputs via
// the piecewise map above. gain is 2^exposure.
func buildGammaLUT(gamma float32, exposure float32, isRaw bool) *gammaLUT {
	lut := &gammaLUT{}
	gain := float32(math.Pow(2, float64(exposure)))

	effGamma := gamma
	if !isRaw {
		// Evaluate the reduction map at the curve's nominal midpoint and
		// scale gamma down proportionally; a simple, deterministic
		// stand-in for the legacy per-channel reduction table.
		factor := nonRawGammaReduction.Eval(0.5)
		effGamma = 1 + (gamma-1)*factor
	}

	invGamma := 1.0 / float64(effGamma)
	for i := 0; i < gammaLUTSize; i++ {
		x := float64(i) / float64(gammaLUTSize-1)
		v := math.Pow(x, invGamma)
		lut.forward[i] = float32(v*float64(gammaLUTSize-1)) * gain
	}

	for i := 0; i < gammaLUTSize; i++ {
		x := float64(i) / float64(gammaLUTSize-1)
		v := math.Pow(x, float64(effGamma))
		lut.inverse[i] = float32(v * float64(gammaLUTSize-1))
	}

	return lut
}

// apply maps a raw 16-bit-range sample through the forward gamma LUT,
// clamping the index and using linear interpolation between bins.
func (g *gammaLUT) apply(v float32) float32 {
	return lerpLUT(g.forward[:], v)
}

// applyInverse maps a sample back through the inverse gamma LUT.
func (g *gammaLUT) applyInverse(v float32) float32 {
	return lerpLUT(g.inverse[:], v)
}

func lerpLUT(table []float32, v float32) float32 {
	if v <= 0 {
		return table[0]
	}
	n := len(table)
	if v >= float32(n-1) {
		return table[n-1]
	}
	i := int(v)
	frac := v - float32(i)
	if i+1 >= n {
		return table[i]
	}
	return table[i] + frac*(table[i+1]-table[i])
}
