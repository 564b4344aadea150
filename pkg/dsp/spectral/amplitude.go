package spectral

import (
	"fmt"
	"math"
)

// DefaultFreqBandHz is the half-width in Hz of the band integrated around
// a peak when estimating its amplitude
const DefaultFreqBandHz = 3.0

// ErrFrequencyOutOfRange is returned when the target frequency falls
// outside the spectrum's frequency axis
var ErrFrequencyOutOfRange = fmt.Errorf("target frequency outside spectrum range")

// AmplitudeEstimator converts the power in a band around a detected peak
// into a calibrated voltage amplitude using the analysis window's ENBW
type AmplitudeEstimator struct {
	bandHz float64
}

// NewAmplitudeEstimator creates an amplitude estimator integrating over
// +-bandHz around the peak. Non-positive bandHz falls back to
// DefaultFreqBandHz.
func NewAmplitudeEstimator(bandHz float64) *AmplitudeEstimator {
	if bandHz <= 0 {
		bandHz = DefaultFreqBandHz
	}
	return &AmplitudeEstimator{bandHz: bandHz}
}

// Amplitude integrates magnitude-squared power over the band around
// targetFreq, corrects it by the window's equivalent noise bandwidth and
// returns the square root as the estimated amplitude in volts.
//
// A target frequency off the spectrum axis is rejected with
// ErrFrequencyOutOfRange. A band extending past the spectrum bounds is
// clamped to the available bins: near the axis edges the estimate
// integrates a narrower band rather than failing.
func (ae *AmplitudeEstimator) Amplitude(magnitude SpectrumFrame, targetFreq, enbw float64) (float64, error) {
	n := magnitude.Len()
	if n < 2 {
		return 0, fmt.Errorf("%w: spectrum has %d bins", ErrFrequencyOutOfRange, n)
	}

	first := magnitude.Freqs[0]
	last := magnitude.Freqs[n-1]
	if targetFreq < first || targetFreq > last {
		return 0, fmt.Errorf("%w: %.3f Hz not in [%.3f, %.3f]", ErrFrequencyOutOfRange, targetFreq, first, last)
	}

	freqRes := (last - first) / float64(n)
	idxRange := int(math.Floor(ae.bandHz / freqRes))

	// Nearest bin to the target on the uniform axis
	binStep := (last - first) / float64(n-1)
	idx := int(math.Round((targetFreq - first) / binStep))

	lo := max(idx-idxRange, 0)
	hi := min(idx+idxRange, n-1)

	power := 0.0
	for k := lo; k <= hi; k++ {
		power += freqRes * magnitude.Values[k] * magnitude.Values[k]
	}
	power /= enbw

	return math.Sqrt(power), nil
}
