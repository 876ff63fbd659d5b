package median

import (
	"testing"

	"github.com/rawcore/denoise/internal/plane"
)

func impulsePlane(w, h, cx, cy int, peak float32) *plane.Plane {
	p := plane.New(w, h)
	p.Set(cx, cy, peak)
	return p
}

func TestFilter_ImpulseIsRemoved(t *testing.T) {
	p := impulsePlane(9, 9, 4, 4, 100)
	out := plane.New(9, 9)
	if err := Filter(out, p, Strong3x3, 1, nil); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if got := out.At(4, 4); got != 0 {
		t.Errorf("center after median = %v, want 0 (isolated impulse removed)", got)
	}
}

func TestFilter_BoundPassesThroughOutliers(t *testing.T) {
	p := impulsePlane(9, 9, 4, 4, 100)
	out := plane.New(9, 9)
	bound := float32(50)
	if err := Filter(out, p, Strong3x3, 1, &bound); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if got := out.At(4, 4); got != 100 {
		t.Errorf("center with bound=%v = %v, want 100 unchanged", bound, got)
	}
}

func TestFilter_ConstantPlaneUnchanged(t *testing.T) {
	p := plane.New(10, 10)
	for i := range p.Data {
		p.Data[i] = 3.5
	}
	out := plane.New(10, 10)
	for _, kind := range []Kind{Soft3x3, Strong3x3, Soft5x5, Strong5x5, Size7x7, Size9x9} {
		if err := Filter(out, p, kind, 1, nil); err != nil {
			t.Fatalf("Filter(kind=%v): %v", kind, err)
		}
		for i, v := range out.Data {
			if v != 3.5 {
				t.Errorf("kind=%v out[%d] = %v, want 3.5", kind, i, v)
			}
		}
	}
}

func TestFilter_BorderUnchanged(t *testing.T) {
	w, h := 12, 12
	p := plane.New(w, h)
	for i := range p.Data {
		p.Data[i] = float32(i)
	}
	out := plane.New(w, h)
	if err := Filter(out, p, Size7x7, 1, nil); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	border, _ := footprint(Size7x7)
	for y := 0; y < border; y++ {
		for x := 0; x < w; x++ {
			if got, want := out.At(x, y), p.At(x, y); got != want {
				t.Errorf("border (%d,%d) = %v, want unchanged %v", x, y, got, want)
			}
		}
	}
}

func TestFilter_InPlaceAllocatesSecondBuffer(t *testing.T) {
	p := impulsePlane(9, 9, 4, 4, 100)
	if err := Filter(p, p, Strong3x3, 1, nil); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if got := p.At(4, 4); got != 0 {
		t.Errorf("in-place center = %v, want 0", got)
	}
}

func TestFilter_MultipleIterations(t *testing.T) {
	p := impulsePlane(11, 11, 5, 5, 100)
	out := plane.New(11, 11)
	if err := Filter(out, p, Strong3x3, 3, nil); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if got := out.At(5, 5); got != 0 {
		t.Errorf("center after 3 iterations = %v, want 0", got)
	}
}

func TestFilter_DimensionMismatchErrors(t *testing.T) {
	src := plane.New(5, 5)
	dst := plane.New(6, 6)
	if err := Filter(dst, src, Soft3x3, 1, nil); err == nil {
		t.Error("Filter with mismatched dims: want error, got nil")
	}
}

func TestFilter_ZeroIterationsErrors(t *testing.T) {
	src := plane.New(5, 5)
	dst := plane.New(5, 5)
	if err := Filter(dst, src, Soft3x3, 0, nil); err == nil {
		t.Error("Filter with 0 iterations: want error, got nil")
	}
}

func TestFootprint_Sizes(t *testing.T) {
	tests := []struct {
		kind    Kind
		border  int
		nPixels int
	}{
		{Soft3x3, 1, 5},
		{Strong3x3, 1, 9},
		{Soft5x5, 2, 13},
		{Strong5x5, 2, 25},
		{Size7x7, 3, 49},
		{Size9x9, 4, 81},
	}
	for _, tt := range tests {
		border, offsets := footprint(tt.kind)
		if border != tt.border {
			t.Errorf("kind=%v border = %d, want %d", tt.kind, border, tt.border)
		}
		if len(offsets) != tt.nPixels {
			t.Errorf("kind=%v len(offsets) = %d, want %d", tt.kind, len(offsets), tt.nPixels)
		}
	}
}
