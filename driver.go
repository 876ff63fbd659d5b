package denoise

import (
	"math"

	"github.com/rawcore/denoise/internal/dctengine"
	"github.com/rawcore/denoise/internal/detailmask"
	"github.com/rawcore/denoise/internal/median"
	"github.com/rawcore/denoise/internal/plane"
	"github.com/rawcore/denoise/internal/wavelet"
)

const chromaBoostThreshold = 3000
const baseNoiseScale = 40.0

// qhighFactor is the chroma-boost multiplier applied above
// chromaBoostThreshold (FTblockDN.cc's qhighFactor): a stronger push when
// bi-shrink (high quality) is enabled, 1/0.9 vs. a flat 1.0 otherwise.
func qhighFactor(aggressive bool) float32 {
	if aggressive {
		return 1.0 / 0.9
	}
	return 1.0
}

// chromaReal computes realred/realblue (FTblockDN.cc's per-channel chroma
// noise scale): a shared master term from Chroma plus an asymmetric
// red/green or blue/yellow bias, each clamped away from zero. Used both
// to scale the two chroma channels' noise variance independently and to
// pick the wavelet level count (spec.md §4.6.b's maxamp).
func chromaReal(cfg *DenoiseConfig) (realred, realblue float32) {
	intermMed := cfg.Chroma / 10

	var intermred float32
	if cfg.ChromaRedGreen > 0 {
		intermred = cfg.ChromaRedGreen / 10
	} else {
		intermred = cfg.ChromaRedGreen / 7
	}

	var intermblue float32
	if cfg.ChromaBlueYellow > 0 {
		intermblue = cfg.ChromaBlueYellow / 10
	} else {
		intermblue = cfg.ChromaBlueYellow / 7
	}

	realred = intermMed + intermred
	if realred <= 0 {
		realred = 0.001
	}
	realblue = intermMed + intermblue
	if realblue <= 0 {
		realblue = 0.001
	}
	return realred, realblue
}

// chromaChannelAmount turns one channel's realred/realblue term into the
// NoiseVarABScalar the wavelet chroma shrinker expects, normalized so
// that ChromaRedGreen==ChromaBlueYellow==0 reproduces the plain
// (Chroma/100)^2*baseNoiseScale scalar used elsewhere in this file.
func chromaChannelAmount(real float32) float32 {
	n := real / 10
	return n * n * baseNoiseScale
}

// Denoise runs the full two-stage denoise core over one image, per
// spec.md §4.6. src==dst is permitted. scale is the processing scale
// (1.0 at full resolution, smaller for previews); it governs box-blur
// and block-smoothing radii elsewhere in the pipeline.
func Denoise(pa PipelineAdapter, cfg *DenoiseConfig, rt *DenoiseRuntime, scale float32) (*Diagnostics, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src, dst := pa.Source(), pa.Destination()
	if src.W != dst.W || src.H != dst.H {
		return nil, &DimensionError{Reason: "source and destination image dimensions differ"}
	}

	diag := &Diagnostics{}
	nc := pa.NoiseCurves()

	if !cfg.active(nc) {
		if src != dst {
			copy(dst.R, src.R)
			copy(dst.G, src.G)
			copy(dst.B, src.B)
		}
		return diag, nil
	}

	lut := buildGammaLUT(cfg.Gamma, pa.Exposure(), pa.IsRaw())
	geom := tileCalc(src.W, src.H)

	// DctTileEngine runs whenever luma denoise is enabled, using detail_hi
	// (from LuminanceDetail) everywhere inside the image when no
	// DetailMask is built; LuminanceDetailThresh only gates whether that
	// mask is built below, it never gates the engine itself (spec.md
	// §4.6.f / §4.5's "otherwise (inside image): detail_hi").
	var dctEng *dctengine.Engine
	if cfg.Luma > 0 {
		dctEng = rt.planDCT(dctengine.DetailParams{Ldetail: cfg.LuminanceDetail}, scale)
	}

	accumR := make([]float32, src.W*src.H)
	accumG := make([]float32, src.W*src.H)
	accumB := make([]float32, src.W*src.H)
	weight := make([]float32, src.W*src.H)

	for _, t := range geom.Tiles {
		if err := processTile(src, t, geom, cfg, pa.Profile(), lut, nc, scale, dctEng, diag,
			accumR, accumG, accumB, weight); err != nil {
			diag.note("tile at (" + itoa(t.X) + "," + itoa(t.Y) + ") passed through unchanged: " + err.Error())
			diag.PassedThrough = true
			passThroughTile(src, t, lut, accumR, accumG, accumB, weight)
		}
	}

	for i := 0; i < src.W*src.H; i++ {
		w := weight[i]
		if w <= 0 {
			w = 1
		}
		dst.R[i] = accumR[i] / w
		dst.G[i] = accumG[i] / w
		dst.B[i] = accumB[i] / w
	}

	if !pa.IsRaw() {
		for i := range dst.R {
			dst.R[i] = lut.applyInverse(dst.R[i])
			dst.G[i] = lut.applyInverse(dst.G[i])
			dst.B[i] = lut.applyInverse(dst.B[i])
		}
	}

	return diag, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// passThroughTile writes the tile's gamma-corrected source pixels
// straight into the accumulators, used as the allocation-failure
// fallback (spec.md §4.6 failure semantics / §7 AllocationError).
func passThroughTile(src *RgbImage, t tileRect, lut *gammaLUT, accumR, accumG, accumB, weight []float32) {
	for ly := 0; ly < t.H; ly++ {
		gy := t.Y + ly
		for lx := 0; lx < t.W; lx++ {
			gx := t.X + lx
			idx := gy*src.W + gx
			r := lut.apply(src.at(src.R, gx, gy))
			g := lut.apply(src.at(src.G, gx, gy))
			b := lut.apply(src.at(src.B, gx, gy))
			accumR[idx] += r
			accumG[idx] += g
			accumB[idx] += b
			weight[idx] += 1
		}
	}
}

func processTile(src *RgbImage, t tileRect, geom tileGeometry, cfg *DenoiseConfig, wp *WorkingProfile,
	lut *gammaLUT, nc *NoiseCurves, scale float32, dctEng *dctengine.Engine, diag *Diagnostics,
	accumR, accumG, accumB, weight []float32) error {

	tile := newLabTile(t.X, t.Y, t.W, t.H)
	for ly := 0; ly < t.H; ly++ {
		gy := t.Y + ly
		for lx := 0; lx < t.W; lx++ {
			gx := t.X + lx
			r := lut.apply(src.at(src.R, gx, gy))
			g := lut.apply(src.at(src.G, gx, gy))
			b := lut.apply(src.at(src.B, gx, gy))
			l, a, bb := toWorkingSpace(cfg.ColorSpace, wp, r, g, b)
			tile.L.Set(lx, ly, l)
			tile.A.Set(lx, ly, a)
			tile.B.Set(lx, ly, bb)
		}
	}

	if cfg.Median != nil {
		filtered := plane.New(t.W, t.H)
		if err := median.Filter(filtered, tile.L, cfg.Median.Kind, cfg.Median.Iterations, cfg.Median.Bound); err != nil {
			return err
		}
		tile.L = filtered
	}

	lumcalc, ccalc := buildNoiseMaps(tile, nc)
	nf := buildNoiseField(tile, lumcalc, ccalc, cfg)

	realred, realblue := chromaReal(cfg)
	maxreal := realred
	if realblue > maxreal {
		maxreal = realblue
	}

	levels, err := chooseLevels(maxreal, cfg.Aggressive, scale, minInt(t.W, t.H))
	if err != nil {
		return err
	}

	noiseVarLum := nf.toFullLumPlane()
	noiseVarChrom := nf.toFullChromPlane()

	tileLabel := "(" + itoa(t.X) + "," + itoa(t.Y) + ")"

	pyrL, err := wavelet.Decompose(tile.L, levels)
	lumaPyramidOK := err == nil
	if !lumaPyramidOK {
		diag.noteSkippedLuma("tile at " + tileLabel + ": luma shrink skipped, " + err.Error())
		diag.noteSkippedDetail("tile at " + tileLabel + ": detail recovery skipped, no luma reconstruction to recover from")
	}

	var scratch *wavelet.Scratch
	var madL [][3]float32
	if lumaPyramidOK {
		scratch = wavelet.NewScratch(t.W, t.H)
		defer scratch.Release()
		madL = wavelet.MadPerLevelDir(pyrL, scratch)
	}

	if lumaPyramidOK && cfg.chromaActive() {
		chromaCurveActive := nc != nil && nc.ChromaCurve != nil
		redAmount := chromaChannelAmount(realred)
		blueAmount := chromaChannelAmount(realblue)

		aIn := tile.A.Clone()
		pyrA, err := wavelet.Decompose(tile.A, levels)
		if err == nil {
			chromaParams := wavelet.ChromaParams{
				NoiseVarChrom:     noiseVarChrom,
				NoiseVarABScalar:  redAmount,
				Scale:             scale,
				BiShrink:          cfg.Aggressive,
				ChromaCurveActive: chromaCurveActive,
			}
			wavelet.ShrinkChroma(pyrA, pyrL, madL, chromaParams, scratch)
			wavelet.Reconstruct(pyrA, tile.A)
			sanitizeNonFinite(tile.A, aIn, "chroma-a", diag)
		}

		bIn := tile.B.Clone()
		pyrB, err := wavelet.Decompose(tile.B, levels)
		if err == nil {
			chromaParams := wavelet.ChromaParams{
				NoiseVarChrom:     noiseVarChrom,
				NoiseVarABScalar:  blueAmount,
				Scale:             scale,
				BiShrink:          cfg.Aggressive,
				ChromaCurveActive: chromaCurveActive,
			}
			wavelet.ShrinkChroma(pyrB, pyrL, madL, chromaParams, scratch)
			wavelet.Reconstruct(pyrB, tile.B)
			sanitizeNonFinite(tile.B, bIn, "chroma-b", diag)
		}
	}

	if lumaPyramidOK && cfg.Luma > 0 {
		lin := tile.L.Clone()
		lumaParams := wavelet.LumaParams{
			NoiseVarLum: noiseVarLum,
			Scale:       scale,
			BiShrink:    cfg.Aggressive,
		}
		wavelet.ShrinkLuma(pyrL, madL, lumaParams, scratch)
		wavelet.Reconstruct(pyrL, tile.L)
		sanitizeNonFinite(tile.L, lin, "luma", diag)

		if dctEng != nil {
			residual := plane.New(t.W, t.H)
			for i := range residual.Data {
				residual.Data[i] = lin.Data[i] - tile.L.Data[i]
			}

			var maskPlane *plane.Plane
			if cfg.LuminanceDetailThresh > 0 {
				amount := clamp01(cfg.LuminanceDetailThresh / 100)
				maskPlane = detailmask.Build(tile.L, detailmask.Params{
					Scaling: 65535, Threshold: 25, Ceiling: 10000, Factor: amount, Scale: scale, Blur: true,
				})
			}

			ldetail := dctEng.Run(residual, maskPlane)
			for i := range tile.L.Data {
				tile.L.Data[i] += ldetail.Data[i]
			}
			sanitizeNonFinite(tile.L, lin, "detail-recovery", diag)
		}
	}

	boost := qhighFactor(cfg.Aggressive)
	boostA := 1 + boost*realred/100
	boostB := 1 + boost*realblue/100
	for i := 0; i < t.W*t.H; i++ {
		a := tile.A.Data[i]
		b := tile.B.Data[i]
		mag := chromaMagnitude(a, b)
		if mag > chromaBoostThreshold {
			tile.A.Data[i] = a * boostA
			tile.B.Data[i] = b * boostB
		}
	}

	for ly := 0; ly < t.H; ly++ {
		gy := t.Y + ly
		vmask := featherAxis(ly, t.H, t.Y, gy, src.H, tileOverlap)
		for lx := 0; lx < t.W; lx++ {
			gx := t.X + lx
			hmask := featherAxis(lx, t.W, t.X, gx, src.W, tileOverlap)
			w := vmask * hmask

			l := tile.L.At(lx, ly)
			a := tile.A.At(lx, ly)
			b := tile.B.At(lx, ly)
			r, g, bb := fromWorkingSpace(cfg.ColorSpace, wp, l, a, b)

			idx := gy*src.W + gx
			accumR[idx] += w * r
			accumG[idx] += w * g
			accumB[idx] += w * bb
			weight[idx] += w
		}
	}

	return nil
}

// featherAxis computes the raised-cosine blend weight for one axis of
// one tile pixel. origin is the tile's starting coordinate on this axis;
// globalPos its position in the full image; imgLen the image's extent on
// this axis. The ramp only activates on edges that are true internal
// tile-overlap seams, never on the image's outer border.
func featherAxis(localPos, tileLen, origin, globalPos, imgLen, overlap int) float32 {
	hasPrev := origin > 0
	hasNext := origin+tileLen < imgLen
	half := overlap / 2
	if half <= 0 {
		return 1
	}
	w := float32(1)
	if hasPrev && localPos < half {
		w *= rampUnit(localPos, half)
	}
	if hasNext && localPos >= tileLen-half {
		w *= rampUnit(tileLen-1-localPos, half)
	}
	return w
}

func buildNoiseField(tile *LabTile, lumcalc, ccalc *plane.Plane, cfg *DenoiseConfig) *NoiseField {
	w, h := tile.L.W, tile.L.H
	nf := newNoiseField(w, h)
	gw, gh := nf.gridDims()

	lumaBase := (cfg.Luma / 100) * (cfg.Luma / 100) * baseNoiseScale
	chromaBase := (cfg.Chroma / 100) * (cfg.Chroma / 100) * baseNoiseScale

	for gy := 0; gy < gh; gy++ {
		sy := minInt(gy*2, h-1)
		for gx := 0; gx < gw; gx++ {
			sx := minInt(gx*2, w-1)
			idx := gy*gw + gx
			nf.NoiseVarLum[idx] = lumaBase * lumcalc.At(sx, sy)
			nf.NoiseVarChrom[idx] = chromaBase * ccalc.At(sx, sy)
		}
	}
	return nf
}

// chooseLevels picks the wavelet level count per spec.md §4.6 step 6.b:
// maxamp (here maxreal, the larger of chromaReal's realred/realblue)
// sets the baseline, aggressive (high quality) bumps it by 2, scale and
// the tile's minimum dimension clamp it from above.
func chooseLevels(maxreal float32, aggressive bool, scale float32, tileMinDim int) (int, error) {
	var l int
	switch {
	case maxreal < 8:
		l = 5
	case maxreal < 10:
		l = 6
	case maxreal < 15:
		l = 7
	default:
		l = 8
	}
	if aggressive {
		l += 2
	}
	if l > 8 {
		l = 8
	}
	if scale > 0 {
		l -= int(math.Ceil(math.Log(float64(scale))))
	}
	if l < 5 {
		l = 5
	}
	if max := maxLevelsForDim(tileMinDim); l > max {
		l = max
	}
	if l < 3 {
		l = 3
	}
	return l, nil
}

func maxLevelsForDim(minDim int) int {
	switch {
	case minDim < 16:
		return 3
	case minDim < 32:
		return 4
	case minDim < 64:
		return 5
	case minDim < 128:
		return 6
	case minDim < 256:
		return 7
	default:
		return 8
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// sanitizeNonFinite replaces any non-finite sample in p with the
// corresponding sample from source, per spec.md §7's NumericWarning: a
// pathological curve or shrink division can in principle produce a NaN
// or Inf, and the call must keep going rather than propagate one into
// dst. Replacements are counted into diag for the caller to inspect.
func sanitizeNonFinite(p, source *plane.Plane, stage string, diag *Diagnostics) {
	var n int
	for i, v := range p.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			p.Data[i] = source.Data[i]
			n++
		}
	}
	if n > 0 {
		diag.noteNumericWarning(&NumericWarning{Stage: stage, Count: n})
	}
}
