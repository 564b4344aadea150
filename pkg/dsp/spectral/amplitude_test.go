package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmplitudeRejectsOutOfRangeTarget(t *testing.T) {
	ae := NewAmplitudeEstimator(DefaultFreqBandHz)
	mag := uniformFrame(make([]float64, 100))

	_, err := ae.Amplitude(mag, 500.0, 1.0)
	assert.ErrorIs(t, err, ErrFrequencyOutOfRange)

	_, err = ae.Amplitude(mag, -1.0, 1.0)
	assert.ErrorIs(t, err, ErrFrequencyOutOfRange)
}

func TestAmplitudeRejectsDegenerateSpectrum(t *testing.T) {
	ae := NewAmplitudeEstimator(DefaultFreqBandHz)

	_, err := ae.Amplitude(SpectrumFrame{}, 1.0, 1.0)
	assert.ErrorIs(t, err, ErrFrequencyOutOfRange)

	_, err = ae.Amplitude(uniformFrame([]float64{1}), 0.0, 1.0)
	assert.ErrorIs(t, err, ErrFrequencyOutOfRange)
}

func TestAmplitudeClampsBandAtEdges(t *testing.T) {
	// Target near DC: the integration band would extend below bin 0 and
	// must clamp instead of failing or reading out of bounds.
	ae := NewAmplitudeEstimator(DefaultFreqBandHz)

	values := make([]float64, 100)
	values[1] = 2.0
	mag := uniformFrame(values)

	nearEdge, err := ae.Amplitude(mag, 1.0, 1.0)
	require.NoError(t, err)
	assert.Greater(t, nearEdge, 0.0)

	// Same peak away from the edge integrates the full band; clamping
	// only narrows the window, it never adds power.
	values = make([]float64, 100)
	values[50] = 2.0
	centered, err := ae.Amplitude(uniformFrame(values), 50.0, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, centered, nearEdge, 1e-9)
}

func TestAmplitudeAppliesENBWCorrection(t *testing.T) {
	ae := NewAmplitudeEstimator(DefaultFreqBandHz)

	values := make([]float64, 100)
	values[50] = 3.0
	mag := uniformFrame(values)

	uncorrected, err := ae.Amplitude(mag, 50.0, 1.0)
	require.NoError(t, err)

	corrected, err := ae.Amplitude(mag, 50.0, 1.5)
	require.NoError(t, err)

	// Doubling ENBW scales power down linearly, amplitude by sqrt
	assert.InDelta(t, uncorrected/1.224744871, corrected, 1e-6)
}

func TestAmplitudeDefaultBand(t *testing.T) {
	ae := NewAmplitudeEstimator(0)
	assert.Equal(t, DefaultFreqBandHz, ae.bandHz)
}
