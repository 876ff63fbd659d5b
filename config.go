package denoise

import "github.com/rawcore/denoise/internal/median"

// ColorSpace selects the working space the driver converts RGB tiles
// into before wavelet/DCT processing. Both are geometrically identical
// three-plane tiles; only the conversion matrices differ.
type ColorSpace int

const (
	ColorSpaceLab ColorSpace = iota
	ColorSpaceYUV
)

// MedianOption enables the optional median pre-pass on luma.
type MedianOption struct {
	Kind       median.Kind
	Iterations int
	Bound      *float32
}

// ChromaMethod selects how the per-tile chroma noise scale is derived.
// Manual takes it from Chroma/ChromaRedGreen/ChromaBlueYellow; Automatic
// forces the chroma wavelet pass to run even when those sliders indicate
// no work, mirroring the original's chrominanceMethod != MANUAL override
// of execwavelet (FTblockDN.cc).
type ChromaMethod int

const (
	ChromaMethodManual ChromaMethod = iota
	ChromaMethodAutomatic
)

// DenoiseConfig is the caller-facing configuration for one Denoise call.
type DenoiseConfig struct {
	Enabled bool // false short-circuits the whole call, like params.denoise.enabled

	Luma                  float32 // 0 disables luma wavelet shrink
	Chroma                float32 // 0..100; master chroma amount
	ChromaRedGreen        float32 // -100..100; red/green chroma noise bias
	ChromaBlueYellow      float32 // -100..100; blue/yellow chroma noise bias
	ChromaMethod          ChromaMethod
	LuminanceDetail       float32 // 0..99.9; drives detail_hi (detail recovery strength)
	LuminanceDetailThresh float32 // 0..100; 0 disables DetailMask only, not detail recovery itself
	Aggressive            bool    // enables bi-shrink + level bump
	Gamma                 float32 // 1.0..3.0
	ColorSpace            ColorSpace
	Median                *MedianOption
}

// Validate rejects an inconsistent or out-of-range configuration,
// mirroring the boundary-validation style of the rest of this package's
// typed errors.
func (c *DenoiseConfig) Validate() error {
	if c.Luma < 0 || c.Luma > 100 {
		return &ConfigError{Field: "Luma", Reason: "must be in [0,100]"}
	}
	if c.Chroma < 0 || c.Chroma > 100 {
		return &ConfigError{Field: "Chroma", Reason: "must be in [0,100]"}
	}
	if c.ChromaRedGreen < -100 || c.ChromaRedGreen > 100 {
		return &ConfigError{Field: "ChromaRedGreen", Reason: "must be in [-100,100]"}
	}
	if c.ChromaBlueYellow < -100 || c.ChromaBlueYellow > 100 {
		return &ConfigError{Field: "ChromaBlueYellow", Reason: "must be in [-100,100]"}
	}
	if c.LuminanceDetail < 0 || c.LuminanceDetail > 99.9 {
		return &ConfigError{Field: "LuminanceDetail", Reason: "must be in [0,99.9]"}
	}
	if c.LuminanceDetailThresh < 0 || c.LuminanceDetailThresh > 100 {
		return &ConfigError{Field: "LuminanceDetailThresh", Reason: "must be in [0,100]"}
	}
	if c.Gamma < 1.0 || c.Gamma > 3.0 {
		return &ConfigError{Field: "Gamma", Reason: "must be in [1.0,3.0]"}
	}
	if c.Median != nil && c.Median.Iterations < 1 {
		return &ConfigError{Field: "Median.Iterations", Reason: "must be >= 1 when Median is set"}
	}
	return nil
}

// active reports whether this config requires any work at all (the
// short-circuit condition of spec.md §4.6 step 1). Enabled gates
// everything else, the same way callers of the original guard the whole
// denoise stage on params.denoise.enabled before ever reaching this code.
func (c *DenoiseConfig) active(nc *NoiseCurves) bool {
	if !c.Enabled {
		return false
	}
	if c.Luma != 0 || c.Chroma != 0 || c.Median != nil {
		return true
	}
	if c.ChromaMethod == ChromaMethodAutomatic {
		return true
	}
	if nc != nil && nc.active() {
		return true
	}
	return false
}

// chromaActive reports whether the chroma wavelet pass should run for
// this tile: either the manual sliders ask for it, or the chroma method
// is Automatic, which always runs chroma denoise regardless of the
// master slider (FTblockDN.cc's chrominanceMethod != MANUAL override).
func (c *DenoiseConfig) chromaActive() bool {
	return c.Chroma > 0 || c.ChromaMethod == ChromaMethodAutomatic
}

// PiecewiseCurve is a monotone piecewise-linear curve over [0,1] used for
// per-pixel noise-variance modulation and gamma reduction maps.
type PiecewiseCurve struct {
	X []float32 // strictly increasing, X[0]==0, X[len-1]==1
	Y []float32
}

// Eval linearly interpolates the curve at x, clamping x to [0,1].
func (c *PiecewiseCurve) Eval(x float32) float32 {
	if len(c.X) == 0 {
		return x
	}
	if x <= c.X[0] {
		return c.Y[0]
	}
	n := len(c.X)
	if x >= c.X[n-1] {
		return c.Y[n-1]
	}
	for i := 1; i < n; i++ {
		if x <= c.X[i] {
			t := (x - c.X[i-1]) / (c.X[i] - c.X[i-1])
			return c.Y[i-1] + t*(c.Y[i]-c.Y[i-1])
		}
	}
	return c.Y[n-1]
}

// NoiseCurves holds the optional per-pixel luma/chroma noise-variance
// modulation curves.
type NoiseCurves struct {
	LumaCurve   *PiecewiseCurve
	ChromaCurve *PiecewiseCurve
}

func (nc *NoiseCurves) active() bool {
	return nc != nil && (nc.LumaCurve != nil || nc.ChromaCurve != nil)
}

// WorkingProfile carries the RGB<->XYZ matrices the driver needs to
// build its Lab/YUV working-space conversion; supplied by the
// surrounding raw pipeline, not computed here.
type WorkingProfile struct {
	RGBToXYZ [3][3]float32
	XYZToRGB [3][3]float32
}
