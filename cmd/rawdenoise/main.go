// Command rawdenoise is a thin adapter around the denoise package: it
// loads a YAML config, reads a planar-float image container, runs the
// two-stage denoise core, and writes the result back out. It is not part
// of the spec'd core (spec.md §1 treats the CLI as a thin adapter) — it
// exists to exercise the library end to end.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rawcore/denoise"
)

var rootCmd = &cobra.Command{
	Use:   "rawdenoise",
	Short: "Run the wavelet + DCT raw-photo denoise core over a planar-float image",
}

var (
	configPath string
	outputPath string
	logLevel   string
)

var runCmd = &cobra.Command{
	Use:   "run <input.pfp>",
	Short: "Denoise a PFP1 planar-float image and write the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)

		return runDenoise(args[0], configPath, outputPath)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <input.pfp>",
	Short: "Print the dimensions of a PFP1 planar-float image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := readPFP(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("File:       %s\n", args[0])
		fmt.Printf("Dimensions: %d x %d\n", img.W, img.H)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to YAML denoise config (required)")
	runCmd.Flags().StringVar(&outputPath, "o", "", "output path (default: <input>.denoised.pfp)")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")
	_ = runCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(infoCmd)
}

func runDenoise(inputPath, configPath, outputPath string) error {
	fc, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	dc, err := fc.toDenoiseConfig()
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"enabled":      dc.Enabled,
		"luma":         dc.Luma,
		"chroma":       dc.Chroma,
		"detail":       dc.LuminanceDetail,
		"detailThresh": dc.LuminanceDetailThresh,
	}).Info("loaded denoise config")

	src, err := readPFP(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	dst := &denoise.RgbImage{
		W: src.W, H: src.H,
		R: make([]float32, src.W*src.H),
		G: make([]float32, src.W*src.H),
		B: make([]float32, src.W*src.H),
	}

	wp := fc.workingProfile()
	adapter := denoise.NewStaticAdapter(src, dst, &wp, fc.Exposure, fc.toNoiseCurves(), fc.IsRaw)
	rt := denoise.NewRuntime()

	start := time.Now()
	diag, err := denoise.Denoise(adapter, dc, rt, fc.Scale)
	if err != nil {
		return fmt.Errorf("denoise: %w", err)
	}
	elapsed := time.Since(start)

	logrus.Infof("denoised %dx%d in %s", src.W, src.H, elapsed)
	for _, msg := range diag.Messages {
		logrus.Warn(msg)
	}
	if diag.PassedThrough {
		logrus.Warn("one or more tiles passed through unchanged due to a recoverable error")
	}

	if outputPath == "" {
		outputPath = inputPath + ".denoised.pfp"
	}
	if err := writePFP(outputPath, dst); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Denoised %s -> %s\n", inputPath, outputPath)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
