// Package spectral implements the numeric pipeline from raw coil-voltage
// samples to calibrated spectral peaks: windowed zero-padded real FFT,
// noise-floor estimation, prominence-based peak detection and band-power
// amplitude estimation.
package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/fluxgatelabs/coilscope/pkg/dsp/window"
)

var (
	// ErrInvalidLength is returned when the sample vector is empty or the
	// FFT length is shorter than the sample vector
	ErrInvalidLength = fmt.Errorf("invalid sample or FFT length")

	// ErrInvalidPeriod is returned when the acquisition period is not positive
	ErrInvalidPeriod = fmt.Errorf("acquisition period must be positive")
)

// SpectrumFrame is a single-sided spectrum: parallel frequency and value
// vectors on the same axis, Ntot/2+1 bins long.
type SpectrumFrame struct {
	Freqs  []float64 `json:"freqs"`
	Values []float64 `json:"values"`
}

// Len returns the number of bins in the frame
func (f SpectrumFrame) Len() int {
	return len(f.Values)
}

// Clone returns a deep copy of the frame
func (f SpectrumFrame) Clone() SpectrumFrame {
	freqs := make([]float64, len(f.Freqs))
	values := make([]float64, len(f.Values))
	copy(freqs, f.Freqs)
	copy(values, f.Values)
	return SpectrumFrame{Freqs: freqs, Values: values}
}

// Estimator computes single-sided magnitude and phase spectra from raw
// sample frames
type Estimator struct{}

// NewEstimator creates a new spectral estimator
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate applies the analysis window to samples, computes a zero-padded
// real FFT of length ntot and derives the single-sided magnitude and phase
// spectra. periodTotal is the duration in seconds covered by the sample
// vector.
//
// Magnitudes are |X|/N with every bin except DC and the last doubled
// (single-sided correction). Phases are angle(X) shifted by +pi into
// [0, 2pi): a deliberate departure from the usual [-pi, pi) convention
// that downstream peak/phase matching relies on. The frequency axis
// reproduces rfftfreq(ntot, d=periodTotal/N): bin spacing N/(ntot*periodTotal).
func (e *Estimator) Estimate(samples []float64, periodTotal float64, win window.Window, ntot int) (SpectrumFrame, SpectrumFrame, error) {
	n := len(samples)
	if n == 0 || ntot < n {
		return SpectrumFrame{}, SpectrumFrame{}, fmt.Errorf("%w: N=%d Ntot=%d", ErrInvalidLength, n, ntot)
	}
	if periodTotal <= 0 {
		return SpectrumFrame{}, SpectrumFrame{}, fmt.Errorf("%w: %g s", ErrInvalidPeriod, periodTotal)
	}

	// Window, correct by coherent gain, zero-pad to ntot
	coeffs := win.Samples(n)
	padded := make([]float64, ntot)
	for i, s := range samples {
		padded[i] = s * coeffs[i] / win.CoherentGain
	}

	spectrum := fft.FFTReal(padded)

	bins := ntot/2 + 1
	freqStep := float64(n) / (float64(ntot) * periodTotal)

	magnitude := SpectrumFrame{
		Freqs:  make([]float64, bins),
		Values: make([]float64, bins),
	}
	phase := SpectrumFrame{
		Freqs:  make([]float64, bins),
		Values: make([]float64, bins),
	}

	for k := 0; k < bins; k++ {
		freq := float64(k) * freqStep
		magnitude.Freqs[k] = freq
		phase.Freqs[k] = freq

		mag := cmplx.Abs(spectrum[k]) / float64(n)
		if k > 0 && k < bins-1 {
			mag *= 2
		}
		magnitude.Values[k] = mag

		// Phase(z) is in (-pi, pi]; the +pi shift lands in (0, 2pi]
		p := cmplx.Phase(spectrum[k]) + math.Pi
		if p >= 2*math.Pi {
			p -= 2 * math.Pi
		}
		phase.Values[k] = p
	}

	return magnitude, phase, nil
}
