package dctengine

// DetailParams controls how aggressively the DCT engine restores detail.
// Ldetail is the user-facing percent slider in [0, 99.9]; 0 disables
// recovery (detail_factor == detail_lo everywhere), higher values recover
// progressively weaker coefficients.
type DetailParams struct {
	Ldetail float32
}

// detailCurve implements spec.md §4.5's normative attenuation curve:
// detail(d) = ((100-d)^2 + 50*(100-d))^2 * TS^2/4
func detailCurve(d float32) float32 {
	x := 100 - d
	v := x*x + 50*x
	return v * v * (TS * TS / 4.0)
}

// DetailFactors precomputes detail_hi (the in-image, no-mask threshold)
// and detail_lo (the padding-region threshold, and the value used when
// Ldetail is 0) once per driver invocation.
type DetailFactors struct {
	ldetail float32
	Hi      float32
	Lo      float32
}

func NewDetailFactors(p DetailParams) DetailFactors {
	return DetailFactors{
		ldetail: p.Ldetail,
		Hi:      detailCurve(p.Ldetail),
		Lo:      detailCurve(0),
	}
}

// PixelFactor returns detail_factor[i,j] for one coefficient position:
//   - maskPresent && insideImage: detail(Ldetail * maskPixel)
//   - !maskPresent && insideImage: detail_hi
//   - outside the image (mirrored padding): detail_lo, regardless of mask
func (f DetailFactors) PixelFactor(maskPixel float32, maskPresent, insideImage bool) float32 {
	if !insideImage {
		return f.Lo
	}
	if !maskPresent {
		return f.Hi
	}
	if maskPixel < 0 {
		maskPixel = 0
	} else if maskPixel > 1 {
		maskPixel = 1
	}
	return detailCurve(f.ldetail * maskPixel)
}
