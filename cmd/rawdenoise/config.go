package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rawcore/denoise"
	"github.com/rawcore/denoise/internal/median"
)

// fileConfig is the YAML-facing mirror of denoise.DenoiseConfig plus the
// handful of call-site parameters (exposure, scale, working profile,
// noise curves) the library itself treats as caller-supplied, not
// configuration. Field names are the adapter's own, not the library's.
type fileConfig struct {
	Enabled               bool           `yaml:"enabled"`
	Luma                  float32        `yaml:"luma"`
	Chroma                float32        `yaml:"chroma"`
	ChromaRedGreen        float32        `yaml:"chroma_red_green"`
	ChromaBlueYellow      float32        `yaml:"chroma_blue_yellow"`
	ChromaMethod          string         `yaml:"chroma_method"`
	LuminanceDetail       float32        `yaml:"luminance_detail"`
	LuminanceDetailThresh float32        `yaml:"luminance_detail_thresh"`
	Aggressive            bool           `yaml:"aggressive"`
	Gamma                 float32        `yaml:"gamma"`
	ColorSpace            string         `yaml:"color_space"`
	Median                *medianConfig  `yaml:"median"`
	Exposure              float32        `yaml:"exposure"`
	Scale                 float32        `yaml:"scale"`
	IsRaw                 bool           `yaml:"is_raw"`
	Profile               *profileConfig `yaml:"profile"`
	LumaCurve             *curveConfig   `yaml:"luma_curve"`
	ChromaCurve           *curveConfig   `yaml:"chroma_curve"`
}

type medianConfig struct {
	Kind       string   `yaml:"kind"`
	Iterations int      `yaml:"iterations"`
	Bound      *float32 `yaml:"bound"`
}

type profileConfig struct {
	RGBToXYZ [3][3]float32 `yaml:"rgb_to_xyz"`
	XYZToRGB [3][3]float32 `yaml:"xyz_to_rgb"`
}

type curveConfig struct {
	X []float32 `yaml:"x"`
	Y []float32 `yaml:"y"`
}

// sRGBProfile is the default working profile (sRGB primaries, D65 white)
// used when a config file omits one, so a minimal config can still run.
var sRGBProfile = denoise.WorkingProfile{
	RGBToXYZ: [3][3]float32{
		{0.4124564, 0.3575761, 0.1804375},
		{0.2126729, 0.7151522, 0.0721750},
		{0.0193339, 0.1191920, 0.9503041},
	},
	XYZToRGB: [3][3]float32{
		{3.2404542, -1.5371385, -0.4985314},
		{-0.9692660, 1.8760108, 0.0415560},
		{0.0556434, -0.2040259, 1.0572252},
	},
}

// loadConfig reads and validates a YAML rawdenoise config file.
func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := &fileConfig{Gamma: 1.0, Scale: 1.0, Enabled: true}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 1.0
	}
	return cfg, nil
}

func (c *fileConfig) colorSpace() (denoise.ColorSpace, error) {
	switch c.ColorSpace {
	case "", "lab":
		return denoise.ColorSpaceLab, nil
	case "yuv":
		return denoise.ColorSpaceYUV, nil
	default:
		return 0, fmt.Errorf("unknown color_space %q (want lab or yuv)", c.ColorSpace)
	}
}

func (c *fileConfig) chromaMethod() (denoise.ChromaMethod, error) {
	switch c.ChromaMethod {
	case "", "manual":
		return denoise.ChromaMethodManual, nil
	case "automatic":
		return denoise.ChromaMethodAutomatic, nil
	default:
		return 0, fmt.Errorf("unknown chroma_method %q (want manual or automatic)", c.ChromaMethod)
	}
}

func medianKind(s string) (median.Kind, error) {
	switch s {
	case "soft3x3":
		return median.Soft3x3, nil
	case "strong3x3":
		return median.Strong3x3, nil
	case "soft5x5":
		return median.Soft5x5, nil
	case "strong5x5":
		return median.Strong5x5, nil
	case "7x7":
		return median.Size7x7, nil
	case "9x9":
		return median.Size9x9, nil
	default:
		return 0, fmt.Errorf("unknown median kind %q", s)
	}
}

// toDenoiseConfig builds the library-facing DenoiseConfig from the file
// config, resolving string enums and the optional median sub-config.
func (c *fileConfig) toDenoiseConfig() (*denoise.DenoiseConfig, error) {
	cs, err := c.colorSpace()
	if err != nil {
		return nil, err
	}
	cm, err := c.chromaMethod()
	if err != nil {
		return nil, err
	}

	dc := &denoise.DenoiseConfig{
		Enabled:               c.Enabled,
		Luma:                  c.Luma,
		Chroma:                c.Chroma,
		ChromaRedGreen:        c.ChromaRedGreen,
		ChromaBlueYellow:      c.ChromaBlueYellow,
		ChromaMethod:          cm,
		LuminanceDetail:       c.LuminanceDetail,
		LuminanceDetailThresh: c.LuminanceDetailThresh,
		Aggressive:            c.Aggressive,
		Gamma:                 c.Gamma,
		ColorSpace:            cs,
	}

	if c.Median != nil {
		kind, err := medianKind(c.Median.Kind)
		if err != nil {
			return nil, err
		}
		iterations := c.Median.Iterations
		if iterations < 1 {
			iterations = 1
		}
		dc.Median = &denoise.MedianOption{
			Kind:       kind,
			Iterations: iterations,
			Bound:      c.Median.Bound,
		}
	}

	return dc, nil
}

func (c *curveConfig) toCurve() *denoise.PiecewiseCurve {
	if c == nil {
		return nil
	}
	return &denoise.PiecewiseCurve{X: c.X, Y: c.Y}
}

func (c *fileConfig) toNoiseCurves() *denoise.NoiseCurves {
	lc := c.LumaCurve.toCurve()
	cc := c.ChromaCurve.toCurve()
	if lc == nil && cc == nil {
		return nil
	}
	return &denoise.NoiseCurves{LumaCurve: lc, ChromaCurve: cc}
}

func (c *fileConfig) workingProfile() denoise.WorkingProfile {
	if c.Profile == nil {
		return sRGBProfile
	}
	return denoise.WorkingProfile{RGBToXYZ: c.Profile.RGBToXYZ, XYZToRGB: c.Profile.XYZToRGB}
}
