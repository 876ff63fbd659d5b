package wavelet

import "github.com/rawcore/denoise/internal/plane"

// lowTaps is the 5-tap B3-spline-like binomial smoothing kernel used as the
// "à trous" scaling filter. Dilating its spacing by 2^level at each
// successive decomposition level (without downsampling) is what makes the
// transform stationary.
var lowTaps = [5]float32{1, 4, 6, 4, 1}

const lowNorm = 1.0 / 16.0

// rowLowpass fills dst with the dilated low-pass filter applied along each
// row of src. Boundary samples are replicated (clamp-to-edge) rather than
// reflected; this only changes the decomposition's detail values near the
// border, never the reconstruction identity (see package doc).
func rowLowpass(dst, src *plane.Plane, spacing int) {
	w, h := src.W, src.H
	for y := 0; y < h; y++ {
		srow := src.Row(y)
		drow := dst.Row(y)
		for x := 0; x < w; x++ {
			var sum float32
			for t := -2; t <= 2; t++ {
				idx := clampIdx(x+t*spacing, w)
				sum += lowTaps[t+2] * srow[idx]
			}
			drow[x] = sum * lowNorm
		}
	}
}

// colLowpass fills dst with the dilated low-pass filter applied along each
// column of src.
func colLowpass(dst, src *plane.Plane, spacing int) {
	w, h := src.W, src.H
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var sum float32
			for t := -2; t <= 2; t++ {
				idy := clampIdx(y+t*spacing, h)
				sum += lowTaps[t+2] * src.At(x, idy)
			}
			dst.Set(x, y, sum*lowNorm)
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

// sub computes dst = a - b elementwise. All three planes must share
// dimensions.
func sub(dst, a, b *plane.Plane) {
	for i := range dst.Data {
		dst.Data[i] = a.Data[i] - b.Data[i]
	}
}

// addInto computes dst += a + b + c elementwise.
func addInto(dst, a, b, c *plane.Plane) {
	for i := range dst.Data {
		dst.Data[i] += a.Data[i] + b.Data[i] + c.Data[i]
	}
}
