package dctengine

import (
	"math"
	"sync"

	"github.com/rawcore/denoise/internal/plane"
	"github.com/rawcore/denoise/internal/pool"
)

// Engine runs the overlapped tiled block-DCT detail recovery pass over a
// residual plane (wavelet input minus wavelet output), restoring
// fine-scale structure the wavelet pass smoothed away while leaving
// low-magnitude (noise-dominated) coefficients attenuated.
//
// Plans are cached per batch width. One Run transforms every block row of
// the residual at the same width (numBlocksW, including the padding
// blocks), so a single plan serves a whole plane; further plans are built
// only when the Engine is run on planes of other widths.
type Engine struct {
	masks   *Masks
	factors DetailFactors
	scale   float32

	mu    sync.Mutex
	plans map[int]*Plan
}

// NewEngine builds an Engine for the given detail-recovery aggressiveness
// and processing scale (1.0 at full resolution; smaller for previews).
func NewEngine(p DetailParams, scale float32) *Engine {
	if scale <= 0 {
		scale = 1
	}
	return &Engine{
		masks:   NewMasks(),
		factors: NewDetailFactors(p),
		scale:   scale,
		plans:   make(map[int]*Plan),
	}
}

func (e *Engine) planFor(width int) *Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.plans[width]; ok {
		return p
	}
	p := NewPlan(width)
	e.plans[width] = p
	return p
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Run recovers detail over the full residual plane. mask, when non-nil,
// must be the same dimensions as residual and carries per-pixel
// detail-mask values in [0,1].
func (e *Engine) Run(residual *plane.Plane, mask *plane.Plane) *plane.Plane {
	w, h := residual.W, residual.H
	numBlocksW := ceilDiv(w, Offset) + 2*Blkrad
	numBlocksH := ceilDiv(h, Offset) + 2*Blkrad

	out := plane.New(w, h)
	totwt := make([]float32, w*h)

	blurRadius := int(3 / e.scale)
	if blurRadius < 1 {
		blurRadius = 1
	}

	plan := e.planFor(numBlocksW)
	row := pool.Get(numBlocksW * TS * TS)
	factor := pool.Get(TS * TS)
	absC := pool.Get(TS * TS)
	nbrwt := pool.Get(TS * TS)
	defer func() {
		pool.Put(row)
		pool.Put(factor)
		pool.Put(absC)
		pool.Put(nbrwt)
	}()

	maskPresent := mask != nil

	for by := 0; by < numBlocksH; by++ {
		startY := (by - Blkrad) * Offset

		for bx := 0; bx < numBlocksW; bx++ {
			startX := (bx - Blkrad) * Offset
			block := row[bx*TS*TS : (bx+1)*TS*TS]
			for i := 0; i < TS; i++ {
				gy := startY + i
				sy := reflectIndex(gy, h)
				for j := 0; j < TS; j++ {
					gx := startX + j
					sx := reflectIndex(gx, w)
					block[i*TS+j] = residual.At(sx, sy) * e.masks.In[i*TS+j]
				}
			}
		}

		plan.Forward(row, numBlocksW)

		for bx := 0; bx < numBlocksW; bx++ {
			startX := (bx - Blkrad) * Offset
			block := row[bx*TS*TS : (bx+1)*TS*TS]

			for i := range block {
				v := block[i]
				if v < 0 {
					v = -v
				}
				absC[i] = v
			}
			boxAbsBlur(nbrwt, absC, blurRadius)

			for i := 0; i < TS; i++ {
				gy := startY + i
				insideY := gy >= 0 && gy < h
				sy := reflectIndex(gy, h)
				for j := 0; j < TS; j++ {
					gx := startX + j
					inside := insideY && gx >= 0 && gx < w
					sx := reflectIndex(gx, w)
					var mp float32
					if maskPresent && inside {
						mp = mask.At(sx, sy)
					}
					factor[i*TS+j] = e.factors.PixelFactor(mp, maskPresent, inside)
				}
			}

			for i, v := range block {
				f := factor[i]
				if f < tauGuard {
					f = tauGuard
				}
				block[i] = v * (1 - float32(math.Exp(-float64(nbrwt[i]*nbrwt[i]/f))))
			}
		}

		plan.Inverse(row, numBlocksW)

		for bx := 0; bx < numBlocksW; bx++ {
			startX := (bx - Blkrad) * Offset
			block := row[bx*TS*TS : (bx+1)*TS*TS]

			for i := 0; i < TS; i++ {
				py := startY + i
				if py < 0 || py >= h {
					continue
				}
				for j := 0; j < TS; j++ {
					px := startX + j
					if px < 0 || px >= w {
						continue
					}
					mIn := e.masks.In[i*TS+j]
					mOut := e.masks.Out[i*TS+j]
					idx := py*w + px
					out.Data[idx] += mOut * block[i*TS+j] * dctNorm
					totwt[idx] += mIn * mOut
				}
			}
		}
	}

	for i := range out.Data {
		if totwt[i] > 0 {
			out.Data[i] /= totwt[i]
		}
	}
	return out
}

// boxAbsBlur runs a small box average over a TS×TS magnitude plane in
// place within one DCT block (clamp-to-edge boundary, radius r).
func boxAbsBlur(dst, src []float32, r int) {
	for i := 0; i < TS; i++ {
		for j := 0; j < TS; j++ {
			var sum float32
			var n int
			for di := -r; di <= r; di++ {
				ii := clampIdx(i+di, TS)
				for dj := -r; dj <= r; dj++ {
					jj := clampIdx(j+dj, TS)
					sum += src[ii*TS+jj]
					n++
				}
			}
			dst[i*TS+j] = sum / float32(n)
		}
	}
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// reflectIndex mirrors an out-of-range index back into [0,n) without
// duplicating the boundary sample on each bounce (reflect-without-
// copy-of-edge, per spec.md §4.5 step 1).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

const tauGuard = 1e-12
