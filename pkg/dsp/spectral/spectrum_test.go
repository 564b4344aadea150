package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgatelabs/coilscope/pkg/dsp/window"
)

// sine generates n samples of amplitude*sin(2*pi*freq*t) at the given
// sample rate
func sine(n int, freq, amplitude, sampleRate float64) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		t := float64(i) / sampleRate
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*t)
	}
	return samples
}

func TestEstimateRejectsInvalidInput(t *testing.T) {
	est := NewEstimator()
	rect, err := window.Lookup("rectangular")
	require.NoError(t, err)

	_, _, err = est.Estimate(nil, 1.0, rect, 1024)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, _, err = est.Estimate(make([]float64, 100), 1.0, rect, 50)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, _, err = est.Estimate(make([]float64, 100), 0, rect, 100)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestEstimateSineMagnitudeAndFrequencyAxis(t *testing.T) {
	const (
		n          = 1000
		sampleRate = 1000.0
		f0         = 50.0
		amplitude  = 2.5
	)

	est := NewEstimator()
	rect, err := window.Lookup("rectangular")
	require.NoError(t, err)

	mag, phase, err := est.Estimate(sine(n, f0, amplitude, sampleRate), n/sampleRate, rect, n)
	require.NoError(t, err)

	require.Equal(t, n/2+1, mag.Len())
	require.Equal(t, n/2+1, phase.Len())

	// Bin spacing is 1 Hz here, so the tone lands exactly on bin 50
	assert.InDelta(t, f0, mag.Freqs[50], 1e-9)
	assert.InDelta(t, amplitude, mag.Values[50], 1e-6)

	// Away from the tone the spectrum is numerically zero
	assert.Less(t, mag.Values[100], 1e-9)
	assert.Less(t, mag.Values[3], 1e-9)
}

func TestEstimatePhaseConvention(t *testing.T) {
	const (
		n          = 1000
		sampleRate = 1000.0
		f0         = 50.0
	)

	est := NewEstimator()
	rect, err := window.Lookup("rectangular")
	require.NoError(t, err)

	// A pure cosine has zero raw phase at its bin; with the +pi shift the
	// reported phase is pi.
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Cos(2 * math.Pi * f0 * float64(i) / sampleRate)
	}

	_, phase, err := est.Estimate(samples, n/sampleRate, rect, n)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, phase.Values[50], 1e-6)

	// A pure sine has raw phase -pi/2, reported as pi/2
	_, phase, err = est.Estimate(sine(n, f0, 1.0, sampleRate), n/sampleRate, rect, n)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, phase.Values[50], 1e-6)

	// Every phase lands in [0, 2pi)
	for _, p := range phase.Values {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.Less(t, p, 2*math.Pi)
	}
}

func TestEstimateZeroPaddedFrequencyAxis(t *testing.T) {
	const (
		n          = 1000
		ntot       = 2000
		sampleRate = 1000.0
	)

	est := NewEstimator()
	rect, err := window.Lookup("rectangular")
	require.NoError(t, err)

	mag, _, err := est.Estimate(sine(n, 50, 1.0, sampleRate), n/sampleRate, rect, ntot)
	require.NoError(t, err)

	// rfftfreq(2000, d=1/1000): 1001 bins, 0.5 Hz apart
	require.Equal(t, ntot/2+1, mag.Len())
	assert.InDelta(t, 0.5, mag.Freqs[1]-mag.Freqs[0], 1e-12)
	assert.InDelta(t, 50.0, mag.Freqs[100], 1e-9)
}

func TestSpectrumFrameClone(t *testing.T) {
	frame := SpectrumFrame{Freqs: []float64{0, 1, 2}, Values: []float64{5, 6, 7}}
	clone := frame.Clone()

	clone.Values[0] = 99
	assert.Equal(t, 5.0, frame.Values[0])
	assert.Equal(t, 3, clone.Len())
}
