// Package median implements the optional k×k median smoothing pass run
// on luma ahead of the wavelet decomposition.
package median

import (
	"fmt"
	"sort"

	"github.com/rawcore/denoise/internal/plane"
)

// Kind selects the neighborhood shape and size.
type Kind int

const (
	Soft3x3 Kind = iota
	Strong3x3
	Soft5x5
	Strong5x5
	Size7x7
	Size9x9
)

type offset struct{ dx, dy int }

// footprint returns the filter's half-width (border) and its relative
// neighbor offsets, per spec.md §4.7's kind semantics.
func footprint(k Kind) (border int, offsets []offset) {
	switch k {
	case Soft3x3:
		return 1, []offset{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	case Strong3x3:
		return 1, square(1)
	case Soft5x5:
		return 2, diamond(2)
	case Strong5x5:
		return 2, square(2)
	case Size7x7:
		return 3, square(3)
	case Size9x9:
		return 4, square(4)
	default:
		panic(fmt.Sprintf("median: unknown kind %d", k))
	}
}

func square(r int) []offset {
	out := make([]offset, 0, (2*r+1)*(2*r+1))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			out = append(out, offset{dx, dy})
		}
	}
	return out
}

func diamond(r int) []offset {
	out := make([]offset, 0, 2*r*r+2*r+1)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if absInt(dx)+absInt(dy) <= r {
				out = append(out, offset{dx, dy})
			}
		}
	}
	return out
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Filter runs kind's median footprint over src, iterations times, writing
// into dst. dst and src may alias. When bound is non-nil, any pixel whose
// source value exceeds *bound is left unchanged (pass-through).
func Filter(dst, src *plane.Plane, kind Kind, iterations int, bound *float32) error {
	if dst.W != src.W || dst.H != src.H {
		return fmt.Errorf("median: dst dims %dx%d do not match src dims %dx%d", dst.W, dst.H, src.W, src.H)
	}
	if iterations < 1 {
		return fmt.Errorf("median: iterations must be >= 1, got %d", iterations)
	}

	border, offsets := footprint(kind)
	w, h := src.W, src.H

	cur := src
	if iterations > 1 || src == dst {
		cur = src.Clone()
	}
	next := plane.New(w, h)

	buf := make([]float32, len(offsets))

	for it := 0; it < iterations; it++ {
		copyBorder(next, cur, border)
		filterInterior(next, cur, w, h, border, offsets, buf, bound)
		cur, next = next, cur
	}

	dst.CopyFrom(cur)
	return nil
}

// copyBorder copies the border-width frame unchanged; it is recomputed
// identically every iteration (the values never change), matching
// spec.md's "border buffer is reused on subsequent iterations."
func copyBorder(dst, src *plane.Plane, border int) {
	w, h := src.W, src.H
	for y := 0; y < h; y++ {
		if y < border || y >= h-border {
			for x := 0; x < w; x++ {
				dst.Set(x, y, src.At(x, y))
			}
			continue
		}
		for x := 0; x < border; x++ {
			dst.Set(x, y, src.At(x, y))
		}
		for x := w - border; x < w; x++ {
			dst.Set(x, y, src.At(x, y))
		}
	}
}

func filterInterior(dst, src *plane.Plane, w, h, border int, offsets []offset, buf []float32, bound *float32) {
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			center := src.At(x, y)
			if bound != nil && center > *bound {
				dst.Set(x, y, center)
				continue
			}
			for i, off := range offsets {
				buf[i] = src.At(x+off.dx, y+off.dy)
			}
			dst.Set(x, y, medianOf(buf))
		}
	}
}

// medianOf returns the middle element of buf (all footprint sizes used
// here are odd). buf is sorted in place.
func medianOf(buf []float32) float32 {
	sort.Slice(buf, func(i, j int) bool { return buf[i] < buf[j] })
	return buf[len(buf)/2]
}
