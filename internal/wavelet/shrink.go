package wavelet

import (
	"math"

	"github.com/rawcore/denoise/internal/plane"
	"github.com/rawcore/denoise/internal/pool"
)

// shrinkEpsilonLuma is the ε term added to the luma shrink denominators
// (both the per-pixel shrinkage factor and the smoothed/local combine
// step) to avoid division by zero.
const shrinkEpsilonLuma = 0.01

// tauGuard keeps the luma/chroma shrinkage exponent well-defined when the
// supplied noise variance is exactly zero (a legitimate "assume no noise
// here" input), without introducing 0/0 NaNs.
const tauGuard = 1e-12

// Scratch holds the per-worker float32 buffers a shrink pass needs: the
// local shrinkage factor, its box-blurred smoothing, a blur scratch, and
// the MAD histogram. Sized once per worker to W*H (the undecimated
// transform's per-level size) and reused across every level and direction.
type Scratch struct {
	w, h  int
	s     []float32
	blur  []float32
	tmp   []float32
	hist  *madHistogram
}

// NewScratch allocates a Scratch sized for a W×H plane, drawing its three
// buffers from the shared bucketed pool (spec.md §3's ShrinkScratch) so
// repeated tile/worker allocations reuse backing arrays instead of
// round-tripping through the allocator.
func NewScratch(w, h int) *Scratch {
	n := w * h
	return &Scratch{
		w:    w,
		h:    h,
		s:    pool.Get(n),
		blur: pool.Get(n),
		tmp:  pool.Get(n),
		hist: newMadHistogram(),
	}
}

// Release returns the Scratch's buffers to the shared pool. Callers invoke
// this once per tile/worker when the shrink pass for that tile is done;
// the Scratch itself must not be used afterward.
func (s *Scratch) Release() {
	pool.Put(s.s)
	pool.Put(s.blur)
	pool.Put(s.tmp)
}

// MadPerLevelDir computes MAD(H), MAD(V), MAD(D) for every level of pyr,
// reading the pyramid's current (pre-shrink) coefficients. The result is
// reused both to shrink the pyramid itself and, for luma, to seed the
// coupled chroma shrink.
func MadPerLevelDir(pyr *Pyramid, scratch *Scratch) [][3]float32 {
	out := make([][3]float32, len(pyr.Levels))
	for k, lvl := range pyr.Levels {
		out[k][0] = Mad(scratch.hist, lvl.H.Data)
		out[k][1] = Mad(scratch.hist, lvl.V.Data)
		out[k][2] = Mad(scratch.hist, lvl.D.Data)
	}
	return out
}

// LumaParams configures luma detail shrinkage.
type LumaParams struct {
	NoiseVarLum *plane.Plane // per-pixel noise variance field, full W×H
	Scale       float32      // driver's working scale, used in the blur radius
	Edge        bool         // if true, Vari[level] overrides NoiseVarLum everywhere
	Vari        []float32    // per-level noise variance override
	BiShrink    bool
}

// ShrinkLuma applies simple or bi-shrink shrinkage to every level/direction
// of pyr in place, using the already-computed madL (see MadPerLevelDir).
func ShrinkLuma(pyr *Pyramid, madL [][3]float32, p LumaParams, scratch *Scratch) {
	if !p.BiShrink {
		for k := range pyr.Levels {
			shrinkLumaLevel(pyr, k, madL[k], p, scratch)
		}
		return
	}

	// Bi-shrink pass 1: coarsest level to finest, each level with its own madL.
	for k := len(pyr.Levels) - 1; k >= 0; k-- {
		shrinkLumaLevel(pyr, k, madL[k], p, scratch)
	}
	// Pass 2: simple shrinker again over all levels (gentle refinement).
	for k := range pyr.Levels {
		shrinkLumaLevel(pyr, k, madL[k], p, scratch)
	}
}

func shrinkLumaLevel(pyr *Pyramid, k int, madLDir [3]float32, p LumaParams, scratch *Scratch) {
	lvl := pyr.LevelCoeffs(k)
	noiseVar := p.NoiseVarLum
	if p.Edge && p.Vari != nil {
		noiseVar = constantPlane(pyr.W, pyr.H, p.Vari[k])
	}
	radius := shrinkRadius(k, p.Scale)
	shrinkBandSimpleLuma(lvl.H, k, madLDir[0], noiseVar, radius, scratch)
	shrinkBandSimpleLuma(lvl.V, k, madLDir[1], noiseVar, radius, scratch)
	shrinkBandSimpleLuma(lvl.D, k, madLDir[2], noiseVar, radius, scratch)
}

// shrinkBandSimpleLuma implements spec's per-level, per-direction luma
// shrink: levelFactor = madL*5/(level+1); local shrinkage s from the
// coefficient energy vs. noise scale; blur s; recombine.
func shrinkBandSimpleLuma(band *plane.Plane, level int, madL float32, noiseVar *plane.Plane, radius int, scratch *Scratch) {
	levelFactor := madL * 5 / float32(level+1)
	s := scratch.s

	for i, c := range band.Data {
		m := c * c
		tau := levelFactor * noiseVar.Data[i]
		if tau <= 0 {
			tau = tauGuard
		}
		expTerm := float32(math.Exp(float64(-m / (9 * tau))))
		denom := m + tau*expTerm + shrinkEpsilonLuma
		s[i] = m / denom
	}

	sPlane := plane.NewFrom(band.W, band.H, s)
	sBlurPlane := plane.NewFrom(band.W, band.H, scratch.blur)
	plane.BoxBlur(sBlurPlane, sPlane, scratch.tmp, radius, radius)

	for i := range band.Data {
		sb := scratch.blur[i]
		si := s[i]
		factor := (sb*sb + si*si) / (sb + si + shrinkEpsilonLuma)
		band.Data[i] *= factor
	}
}

// ChromaParams configures coupled luma/chroma shrinkage of one chroma
// plane's pyramid (a or b).
type ChromaParams struct {
	NoiseVarChrom     *plane.Plane // per-pixel chroma noise variance field
	NoiseVarABScalar  float32      // user chroma noise variance (scalar), used when no curve is active
	ChromaCurveActive bool
	Scale             float32
	Edge              bool
	Vari              []float32
	BiShrink          bool
}

// ShrinkChroma applies simple or bi-shrink shrinkage to pyrChroma in place,
// coupling each coefficient to the co-located luma coefficient in
// pyrLuma (read only — the luma pyramid must not yet have been shrunk
// when this runs, per the driver's ordering).
func ShrinkChroma(pyrChroma, pyrLuma *Pyramid, madL [][3]float32, p ChromaParams, scratch *Scratch) {
	if !p.BiShrink {
		for k := range pyrChroma.Levels {
			shrinkChromaLevel(pyrChroma, pyrLuma, k, madL[k], p, scratch, false)
		}
		return
	}

	// Pass 1: coarsest to finest, chroma coefficients squared-attenuated to
	// deepen suppression.
	for k := len(pyrChroma.Levels) - 1; k >= 0; k-- {
		shrinkChromaLevel(pyrChroma, pyrLuma, k, madL[k], p, scratch, true)
	}
	// Pass 2: gentle refinement, normal (non-squared) attenuation.
	for k := range pyrChroma.Levels {
		shrinkChromaLevel(pyrChroma, pyrLuma, k, madL[k], p, scratch, false)
	}
}

func shrinkChromaLevel(pyrChroma, pyrLuma *Pyramid, k int, madLDir [3]float32, p ChromaParams, scratch *Scratch, squared bool) {
	lvl := pyrChroma.LevelCoeffs(k)
	lumaLvl := pyrLuma.LevelCoeffs(k)

	noiseVar := p.NoiseVarChrom
	if p.Edge && p.Vari != nil {
		noiseVar = constantPlane(pyrChroma.W, pyrChroma.H, p.Vari[k])
	}
	radius := shrinkRadius(k, p.Scale)

	madabH := Mad(scratch.hist, lvl.H.Data)
	madabV := Mad(scratch.hist, lvl.V.Data)
	madabD := Mad(scratch.hist, lvl.D.Data)

	shrinkBandChroma(lvl.H, lumaLvl.H, madabH, madLDir[0], noiseVar, p, radius, scratch, squared)
	shrinkBandChroma(lvl.V, lumaLvl.V, madabV, madLDir[1], noiseVar, p, radius, scratch, squared)
	shrinkBandChroma(lvl.D, lumaLvl.D, madabD, madLDir[2], noiseVar, p, radius, scratch, squared)
}

func shrinkBandChroma(band, lumaBand *plane.Plane, madabRaw, madL float32, noiseVar *plane.Plane, p ChromaParams, radius int, scratch *Scratch, squared bool) {
	madab := madabRaw
	if !p.ChromaCurveActive {
		madab = madabRaw * p.NoiseVarABScalar
	}
	if madab <= 0 {
		madab = tauGuard
	}
	madLSafe := madL
	if madLSafe <= 0 {
		madLSafe = tauGuard
	}

	s := scratch.s
	for i, cab := range band.Data {
		mAB := cab * cab
		mL := lumaBand.Data[i] * lumaBand.Data[i]
		nv := noiseVar.Data[i]
		if nv <= 0 {
			nv = tauGuard
		}
		arg := -(mAB/(nv*madab) + mL/(9*madLSafe))
		s[i] = 1 - float32(math.Exp(float64(arg)))
	}

	sPlane := plane.NewFrom(band.W, band.H, s)
	sBlurPlane := plane.NewFrom(band.W, band.H, scratch.blur)
	plane.BoxBlur(sBlurPlane, sPlane, scratch.tmp, radius, radius)

	for i := range band.Data {
		sb := scratch.blur[i]
		si := s[i]
		factor := (sb*sb + si*si) / (sb + si + shrinkEpsilonLuma)
		if squared {
			factor *= factor
		}
		band.Data[i] *= factor
	}
}

// shrinkRadius computes max(1, ceil((level+2)/scale)), the smoothing
// radius used in shrink step 3 for both luma and chroma.
func shrinkRadius(level int, scale float32) int {
	if scale <= 0 {
		scale = 1
	}
	r := int(math.Ceil(float64(float32(level+2) / scale)))
	if r < 1 {
		r = 1
	}
	return r
}

func constantPlane(w, h int, v float32) *plane.Plane {
	p := plane.New(w, h)
	for i := range p.Data {
		p.Data[i] = v
	}
	return p
}
