package cmd

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fluxgatelabs/coilscope/configs"
	"github.com/fluxgatelabs/coilscope/pkg/dsp/spectral"
	"github.com/fluxgatelabs/coilscope/pkg/dsp/window"
	"github.com/fluxgatelabs/coilscope/pkg/field"
)

var (
	analyzeFreq      float64
	analyzeAmplitude float64
	analyzeWindow    string
	analyzeNsig      int
	analyzeNtot      int
	analyzeRate      float64
	analyzeMinSNR    float64
)

// analyzeResult is the YAML shape printed by the analyze command
type analyzeResult struct {
	Window     string        `yaml:"window"`
	NoiseFloor float64       `yaml:"noise_floor"`
	Peaks      []analyzePeak `yaml:"peaks"`
}

type analyzePeak struct {
	Freq      float64 `yaml:"freq_hz"`
	Magnitude float64 `yaml:"magnitude"`
	Amplitude float64 `yaml:"amplitude_v"`
	FieldX    float64 `yaml:"field_x_t"`
	FieldY    float64 `yaml:"field_y_t"`
	Moment    float64 `yaml:"moment"`
}

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the analysis pipeline once on a synthetic signal",
	Long: `Synthesize a single tone, run it through the full spectral pipeline
(window, FFT, noise floor, peak detection, amplitude estimation, field
conversion) and print the result as YAML.

Useful for sanity-checking window and threshold settings without
starting the service.

Examples:
  # Analyze the default 50 Hz / 2.5 V tone with a hann window
  coilscope analyze --window hann

  # Sweep detection settings against a weaker tone
  coilscope analyze --freq 80 --amplitude 0.2 --min-snr 3`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Float64Var(&analyzeFreq, "freq", 50, "tone frequency in Hz")
	analyzeCmd.Flags().Float64Var(&analyzeAmplitude, "amplitude", 2.5, "tone amplitude in volts")
	analyzeCmd.Flags().StringVar(&analyzeWindow, "window", "rectangular", "analysis window")
	analyzeCmd.Flags().IntVar(&analyzeNsig, "nsig", 1200, "signal length in samples")
	analyzeCmd.Flags().IntVar(&analyzeNtot, "ntot", 0, "FFT length (default nsig)")
	analyzeCmd.Flags().Float64Var(&analyzeRate, "sample-rate", 1200, "sample rate in Hz")
	analyzeCmd.Flags().Float64Var(&analyzeMinSNR, "min-snr", 5, "peak detection threshold")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeNtot == 0 {
		analyzeNtot = analyzeNsig
	}
	if analyzeRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}

	win, err := window.Lookup(analyzeWindow)
	if err != nil {
		return err
	}

	samples := make([]float64, analyzeNsig)
	for i := range samples {
		t := float64(i) / analyzeRate
		samples[i] = analyzeAmplitude * math.Sin(2*math.Pi*analyzeFreq*t)
	}

	periodTotal := float64(analyzeNsig) / analyzeRate
	magnitude, phase, err := spectral.NewEstimator().Estimate(samples, periodTotal, win, analyzeNtot)
	if err != nil {
		return err
	}

	detector := spectral.NewPeakDetector(spectral.DefaultNoisePercentile)
	peaks := detector.Detect(magnitude, phase, analyzeMinSNR)
	estimator := spectral.NewAmplitudeEstimator(spectral.DefaultFreqBandHz)
	coil := configs.GetDefaultCoil()

	result := analyzeResult{
		Window:     win.Name,
		NoiseFloor: detector.NoiseFloor(magnitude.Values),
	}

	for _, p := range peaks {
		amplitude, err := estimator.Amplitude(magnitude, p.Freq, win.ENBW)
		if err != nil {
			continue
		}
		vec, err := field.ToField(amplitude, 2*math.Pi*p.Freq, p.Phase, coil)
		if err != nil {
			continue
		}

		result.Peaks = append(result.Peaks, analyzePeak{
			Freq:      p.Freq,
			Magnitude: p.Magnitude,
			Amplitude: amplitude,
			FieldX:    vec.X,
			FieldY:    vec.Y,
			Moment:    field.Moment(amplitude, coil),
		})
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
