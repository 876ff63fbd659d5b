package dctengine

import (
	"math/rand"
	"testing"

	"github.com/rawcore/denoise/internal/plane"
)

func TestEngine_ZeroResidualStaysZero(t *testing.T) {
	e := NewEngine(DetailParams{Ldetail: 50}, 1)
	src := plane.New(96, 80)
	out := e.Run(src, nil)
	for i, v := range out.Data {
		if v != 0 {
			t.Fatalf("out[%d] = %v, want 0 for a zero residual", i, v)
		}
	}
}

func TestEngine_FullDetailApproximatelyPreservesEnergy(t *testing.T) {
	// Ldetail=99.9 drives detail_hi close to 0, so nearly every coefficient
	// is recovered essentially unattenuated; the output should stay close
	// in magnitude to the input, not collapse toward zero.
	e := NewEngine(DetailParams{Ldetail: 99.9}, 1)
	rng := rand.New(rand.NewSource(3))
	w, h := 100, 90
	src := plane.New(w, h)
	for i := range src.Data {
		src.Data[i] = rng.Float32()*2 - 1
	}

	out := e.Run(src, nil)

	var inEnergy, outEnergy float64
	for i := range src.Data {
		inEnergy += float64(src.Data[i]) * float64(src.Data[i])
		outEnergy += float64(out.Data[i]) * float64(out.Data[i])
	}
	ratio := outEnergy / inEnergy
	if ratio < 0.2 {
		t.Fatalf("output/input energy ratio = %v, want >= 0.2 under near-full detail recovery", ratio)
	}
}

func TestEngine_OutputDimensionsMatchInput(t *testing.T) {
	e := NewEngine(DetailParams{Ldetail: 60}, 1)
	src := plane.New(130, 70)
	out := e.Run(src, nil)
	if out.W != src.W || out.H != src.H {
		t.Fatalf("out dims = %dx%d, want %dx%d", out.W, out.H, src.W, src.H)
	}
}

func TestEngine_WithMaskRunsWithoutPanicking(t *testing.T) {
	e := NewEngine(DetailParams{Ldetail: 90}, 1)
	w, h := 72, 72
	src := plane.New(w, h)
	mask := plane.New(w, h)
	for i := range mask.Data {
		mask.Data[i] = 0.5
	}
	for i := range src.Data {
		src.Data[i] = float32(i%7) - 3
	}
	out := e.Run(src, mask)
	if out.W != w || out.H != h {
		t.Fatalf("out dims = %dx%d, want %dx%d", out.W, out.H, w, h)
	}
}

func TestEngine_ZeroDetailHeavilyAttenuates(t *testing.T) {
	e := NewEngine(DetailParams{Ldetail: 0}, 1)
	rng := rand.New(rand.NewSource(11))
	w, h := 90, 90
	src := plane.New(w, h)
	for i := range src.Data {
		src.Data[i] = rng.Float32()*2 - 1
	}

	out := e.Run(src, nil)

	var inEnergy, outEnergy float64
	for i := range src.Data {
		inEnergy += float64(src.Data[i]) * float64(src.Data[i])
		outEnergy += float64(out.Data[i]) * float64(out.Data[i])
	}
	if outEnergy >= inEnergy {
		t.Fatalf("output energy %v should be well below input energy %v at Ldetail=0", outEnergy, inEnergy)
	}
}
