// Package wavelet implements the undecimated (stationary) dyadic wavelet
// decomposition used to denoise luma and chroma planes, its robust
// per-level noise estimator (MAD), and the shrinkage operator that acts on
// its detail coefficients.
//
// The decomposition is a separable à trous transform: at each level the
// low-pass filter is dilated by 2^level and applied along rows then
// columns, producing one approximation band and three detail bands (H, V,
// D) with no subsampling, so every band has the same W×H as the source
// plane. Because each detail band is defined as an exact difference
// (detail = input − lowpass(input)) rather than a true complementary
// filter, reconstruction is a plain sum of bands and is exact to floating
// point rounding regardless of boundary handling — see filters.go.
package wavelet

import (
	"fmt"
	"math"

	"github.com/rawcore/denoise/internal/plane"
)

// DimensionError is returned when a plane is too small for the requested
// decomposition depth.
type DimensionError struct {
	W, H, Levels int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("wavelet: %dx%d plane too small for %d levels (need min dim >= %d)", e.W, e.H, e.Levels, 1<<e.Levels)
}

// Level holds the four sub-bands produced at one decomposition level, all
// sized W×H (the full plane dimensions — the transform is undecimated).
type Level struct {
	A *plane.Plane // approximation (low-pass of low-pass)
	H *plane.Plane // horizontal detail
	V *plane.Plane // vertical detail
	D *plane.Plane // diagonal detail
}

// Pyramid owns all sub-band buffers for one decomposed plane. It is created
// by Decompose and consumed by Reconstruct; after Reconstruct the pyramid
// should not be reused.
type Pyramid struct {
	W, H   int
	Levels []Level
}

// ClampLevels returns the usable level count for a plane of the given
// dimensions, clamping requested to [3, min(8, floor(log2(min(W,H))))].
// It returns an error if even the minimum depth of 3 does not fit.
func ClampLevels(w, h, requested int) (int, error) {
	minDim := w
	if h < minDim {
		minDim = h
	}
	if minDim < 2 {
		return 0, &DimensionError{W: w, H: h, Levels: 3}
	}
	maxL := int(math.Floor(math.Log2(float64(minDim))))
	if maxL > 8 {
		maxL = 8
	}
	if maxL < 3 {
		return 0, &DimensionError{W: w, H: h, Levels: 3}
	}
	l := requested
	if l < 3 {
		l = 3
	}
	if l > maxL {
		l = maxL
	}
	return l, nil
}

// Decompose computes an L-level undecimated wavelet pyramid of src. L is
// first clamped via ClampLevels; if the plane is too small for even the
// minimum depth, a *DimensionError is returned.
func Decompose(src *plane.Plane, requestedLevels int) (*Pyramid, error) {
	l, err := ClampLevels(src.W, src.H, requestedLevels)
	if err != nil {
		return nil, err
	}

	w, h := src.W, src.H
	pyr := &Pyramid{W: w, H: h, Levels: make([]Level, l)}

	lrow := plane.New(w, h)
	hrow := plane.New(w, h)
	cur := src

	for k := 0; k < l; k++ {
		spacing := 1 << uint(k)

		rowLowpass(lrow, cur, spacing)
		sub(hrow, cur, lrow)

		a := plane.New(w, h)
		hBand := plane.New(w, h)
		vBand := plane.New(w, h)
		dBand := plane.New(w, h)

		colLowpass(a, lrow, spacing)
		sub(hBand, lrow, a)
		colLowpass(vBand, hrow, spacing)
		sub(dBand, hrow, vBand)

		pyr.Levels[k] = Level{A: a, H: hBand, V: vBand, D: dBand}
		cur = a
	}

	return pyr, nil
}

// LevelCoeffs returns the mutable sub-bands at level k (0-indexed, 0 is the
// finest level). The caller may mutate the returned bands in place — this
// is how WaveletShrinker applies shrinkage before Reconstruct.
func (p *Pyramid) LevelCoeffs(k int) *Level {
	return &p.Levels[k]
}

// Reconstruct writes the reconstructed plane into dst, which must already
// be allocated at the pyramid's dimensions. The coarsest level's
// approximation band is the reconstruction seed; each finer level's three
// detail bands are summed back in from coarse to fine.
func Reconstruct(p *Pyramid, dst *plane.Plane) error {
	if dst.W != p.W || dst.H != p.H {
		return &DimensionError{W: dst.W, H: dst.H, Levels: len(p.Levels)}
	}
	l := len(p.Levels)
	dst.CopyFrom(p.Levels[l-1].A)
	for k := l - 1; k >= 0; k-- {
		lvl := p.Levels[k]
		addInto(dst, lvl.H, lvl.V, lvl.D)
	}
	return nil
}
