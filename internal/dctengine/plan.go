// Package dctengine implements the tiled, overlapped block-DCT detail
// recovery pass: it attenuates small-magnitude DCT coefficients of the
// residual (wavelet input minus wavelet output) to restore fine structure
// the wavelet pass over-smoothed, without readmitting noise.
package dctengine

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// TS is the fixed DCT tile size.
const TS = 64

// Offset is the block stride; blocks overlap by TS-Offset.
const Offset = 25

// Blkrad pads one extra block of radius on each tiling axis.
const Blkrad = 1

// dctNorm is the normative renormalization applied once per accumulated
// pixel after the inverse transform (see the accumulation loop in
// Engine.Run): 1/(4*TS*TS).
const dctNorm = 1.0 / (4.0 * TS * TS)

// planMu guards Plan construction. Building the DCT basis is cheap here,
// but FFT/DCT libraries in general are not reentrant during plan setup, so
// construction is serialized the way spec.md requires; execution against
// an already-built Plan is fully concurrent (the basis is read-only).
var planMu sync.Mutex

// Plan is a precomputed pair of forward/inverse batched DCT transforms for
// a fixed tile size (TS) and a fixed per-call batch width (BlockWidth).
// Engine keeps one Plan per distinct block-row width it has been run at.
type Plan struct {
	BlockWidth int

	basis  *mat.Dense // TS x TS orthonormal DCT-II basis
	basisT *mat.Dense // its transpose, cached
}

// NewPlan builds a Plan for the given per-call batch width. Construction
// is serialized across the process.
func NewPlan(blockWidth int) *Plan {
	planMu.Lock()
	defer planMu.Unlock()

	basis := dctBasis(TS)
	var basisT mat.Dense
	basisT.CloneFrom(basis.T())

	return &Plan{BlockWidth: blockWidth, basis: basis, basisT: &basisT}
}

// dctBasis builds the orthonormal n×n DCT-II basis matrix:
// B[0][x]  = sqrt(1/n)
// B[k][x]  = sqrt(2/n) * cos(pi/n * (x+0.5) * k),  k = 1..n-1
// B is orthogonal (B*Bᵀ = I), which is what makes Forward/Inverse an exact
// round trip before the spec-normative dctNorm rescale in Inverse.
func dctBasis(n int) *mat.Dense {
	b := mat.NewDense(n, n, nil)
	for k := 0; k < n; k++ {
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		for x := 0; x < n; x++ {
			v := scale * math.Cos(math.Pi/float64(n)*(float64(x)+0.5)*float64(k))
			b.Set(k, x, v)
		}
	}
	return b
}

// Forward runs the 2D forward DCT over nBlocks TS×TS blocks packed
// contiguously in row, in place.
func (p *Plan) Forward(row []float32, nBlocks int) {
	p.transform(row, nBlocks, true)
}

// Inverse runs the 2D inverse DCT over nBlocks TS×TS blocks packed
// contiguously in row, in place. The true mathematical inverse (Bᵀ·Y·B)
// is scaled up by 1/dctNorm so that, after the caller applies dctNorm at
// accumulation time (spec.md §4.5 step 5), an unattenuated coefficient
// block round-trips to exactly its input.
func (p *Plan) Inverse(row []float32, nBlocks int) {
	p.transform(row, nBlocks, false)
}

func (p *Plan) transform(row []float32, nBlocks int, forward bool) {
	blockSize := TS * TS
	x := mat.NewDense(TS, TS, nil)
	var tmp, out mat.Dense

	for b := 0; b < nBlocks; b++ {
		block := row[b*blockSize : (b+1)*blockSize]
		for i := 0; i < TS; i++ {
			for j := 0; j < TS; j++ {
				x.Set(i, j, float64(block[i*TS+j]))
			}
		}

		if forward {
			tmp.Mul(p.basis, &x)
			out.Mul(&tmp, p.basisT)
			for i := 0; i < TS; i++ {
				for j := 0; j < TS; j++ {
					block[i*TS+j] = float32(out.At(i, j))
				}
			}
		} else {
			tmp.Mul(p.basisT, &x)
			out.Mul(&tmp, p.basis)
			gain := float32(1.0 / dctNorm)
			for i := 0; i < TS; i++ {
				for j := 0; j < TS; j++ {
					block[i*TS+j] = float32(out.At(i, j)) * gain
				}
			}
		}
	}
}
