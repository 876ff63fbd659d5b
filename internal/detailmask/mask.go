// Package detailmask builds the [0,1] mask that tells the DCT detail
// engine where to be gentle: flat areas (no real local structure) are
// held back to near zero, since recovering "detail" there would just
// reintroduce noise, while busy/high-frequency areas get a value near 1,
// allowing full detail recovery where genuine structure is likely.
package detailmask

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/rawcore/denoise/internal/plane"
)

// Params controls the mask construction.
type Params struct {
	Scaling   float32
	Threshold float32
	Ceiling   float32
	Factor    float32
	Scale     float32 // processing scale, 1.0 at full resolution
	Blur      bool
}

// Build computes the detail mask for luma plane L, following spec.md
// §4.8: 4x downsample, log companding, clipped Laplacian, upsample,
// S-curve, optional blur. Images narrower or shorter than 8px fill with 1
// (mask fully open — no gating).
func Build(l *plane.Plane, p Params) *plane.Plane {
	w, h := l.W, l.H
	if w < 8 || h < 8 {
		out := plane.New(w, h)
		for i := range out.Data {
			out.Data[i] = 1
		}
		return out
	}

	l2 := downsample4x(l)

	scaling := p.Scaling
	if scaling == 0 {
		scaling = 1
	}
	for i, v := range l2.Data {
		l2.Data[i] = xlin2log(v/scaling, 50)
	}

	v2 := laplacianMagnitude(l2)

	ceiling := p.Ceiling
	if ceiling == 0 {
		ceiling = 1
	}
	for i, v := range v2.Data {
		c := v - p.Threshold
		if c < 0 {
			c = 0
		}
		if c > ceiling {
			c = ceiling
		}
		v2.Data[i] = c * p.Factor / ceiling
	}

	up := upsample4x(v2, w, h)

	out := plane.New(w, h)
	for i, v := range up.Data {
		x := v + (1 - p.Factor)
		if x < 0 {
			x = 0
		}
		s := xlin2log(pow(x, 2.23), 101)
		if s < 0 {
			s = 0
		} else if s > 1 {
			s = 1
		}
		out.Data[i] = s
	}

	if p.Blur {
		scale := p.Scale
		if scale <= 0 {
			scale = 1
		}
		radius := int(25 / scale)
		if radius < 1 {
			radius = 1
		}
		blurred := plane.New(w, h)
		scratch := make([]float32, w*h)
		plane.BoxBlur(blurred, out, scratch, radius, radius)
		out = blurred
	}

	return out
}

// xlin2log maps a linear value through a log-like companding curve with
// the given base, flattening mid-tones while preserving 0 and monotonicity.
func xlin2log(x float32, base float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Log1p(float64(x)*(float64(base)-1)) / math.Log(float64(base)))
}

func pow(x, e float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Pow(float64(x), float64(e)))
}

// downsample4x bilinearly decimates p by a factor of 4 on each axis using
// golang.org/x/image/draw, matching the teacher pack's bilinear-resize
// convention for preview-scale planes.
func downsample4x(p *plane.Plane) *plane.Plane {
	dw := maxInt(1, p.W/4)
	dh := maxInt(1, p.H/4)
	return resize(p, dw, dh)
}

// upsample4x resizes a decimated plane back to the given full-resolution
// dimensions via bilinear interpolation.
func upsample4x(p *plane.Plane, w, h int) *plane.Plane {
	return resize(p, w, h)
}

// gray16Scale/gray16Offset map the plane's float32 range into the 16-bit
// gray space golang.org/x/image/draw interpolates in, giving ~1/4096
// resolution over the companded [-8,8]-ish range the mask pipeline works
// in — ample for a perceptual gating mask.
const gray16Scale = 4096.0
const gray16Offset = 32768.0

func resize(p *plane.Plane, dw, dh int) *plane.Plane {
	src := image.NewGray16(image.Rect(0, 0, p.W, p.H))
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			src.SetGray16(x, y, floatToGray16(p.At(x, y)))
		}
	}

	dst := image.NewGray16(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	out := plane.New(dw, dh)
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			out.Set(x, y, gray16ToFloat(dst.Gray16At(x, y)))
		}
	}
	return out
}

func floatToGray16(v float32) color.Gray16 {
	s := float64(v)*gray16Scale + gray16Offset
	if s < 0 {
		s = 0
	} else if s > 65535 {
		s = 65535
	}
	return color.Gray16{Y: uint16(s)}
}

func gray16ToFloat(c color.Gray16) float32 {
	return float32((float64(c.Y) - gray16Offset) / gray16Scale)
}

// laplacianMagnitude computes |-8*c + sum(8 neighbors)| at every pixel of
// p, clamping to the plane's border with edge replication.
func laplacianMagnitude(p *plane.Plane) *plane.Plane {
	out := plane.New(p.W, p.H)
	for y := 0; y < p.H; y++ {
		for x := 0; x < p.W; x++ {
			c := p.At(x, y)
			var sum float32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx := clampIdx(x+dx, p.W)
					ny := clampIdx(y+dy, p.H)
					sum += p.At(nx, ny)
				}
			}
			v := -8*c + sum
			if v < 0 {
				v = -v
			}
			out.Set(x, y, v)
		}
	}
	return out
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

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
