package denoise

import (
	"math"

	"github.com/rawcore/denoise/internal/plane"
)

// buildNoiseMaps computes the per-pixel lumcalc/ccalc maps (spec.md
// §4.6 step 3): each source pixel's luma/chroma magnitude is pushed
// through the user noise curves to modulate the base noise-variance
// field. When a curve is nil, its map is filled with 1 (no modulation).
func buildNoiseMaps(tile *LabTile, nc *NoiseCurves) (lumcalc, ccalc *plane.Plane) {
	w, h := tile.L.W, tile.L.H
	lumcalc = plane.New(w, h)
	ccalc = plane.New(w, h)

	for i := 0; i < w*h; i++ {
		lumcalc.Data[i] = 1
		ccalc.Data[i] = 1
	}

	if nc == nil {
		return
	}

	if nc.LumaCurve != nil {
		for i, l := range tile.L.Data {
			lumcalc.Data[i] = nc.LumaCurve.Eval(clamp01(l / refWhiteScale))
		}
	}
	if nc.ChromaCurve != nil {
		for i := range tile.A.Data {
			mag := chromaMagnitude(tile.A.Data[i], tile.B.Data[i])
			ccalc.Data[i] = nc.ChromaCurve.Eval(clamp01(mag / refWhiteScale))
		}
	}
	return
}

func chromaMagnitude(a, b float32) float32 {
	return float32(math.Sqrt(float64(a*a + b*b)))
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
