package window

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownWindows(t *testing.T) {
	for _, name := range []string{"rectangular", "hann", "hamming", "blackman", "blackman-harris"} {
		w, err := Lookup(name)
		require.NoError(t, err, "window %s should be registered", name)

		assert.Greater(t, w.CoherentGain, 0.0, "%s coherent gain must be positive", name)
		assert.LessOrEqual(t, w.CoherentGain, 1.0, "%s coherent gain must not exceed 1", name)
		assert.GreaterOrEqual(t, w.ENBW, 1.0, "%s ENBW must be at least 1", name)
	}
}

func TestLookupAlias(t *testing.T) {
	w, err := Lookup("blackmanharris")
	require.NoError(t, err)
	assert.Equal(t, "Blackman-Harris", w.Name)
}

func TestLookupUnknownWindow(t *testing.T) {
	_, err := Lookup("kaiser")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownWindow)
}

func TestRectangularIsExact(t *testing.T) {
	w, err := Lookup("rectangular")
	require.NoError(t, err)

	assert.Equal(t, 1.0, w.CoherentGain)
	assert.Equal(t, 1.0, w.ENBW)

	for _, c := range w.Samples(64) {
		assert.Equal(t, 1.0, c)
	}
}

func TestHannShape(t *testing.T) {
	w, err := Lookup("hann")
	require.NoError(t, err)

	coeffs := w.Samples(65)
	require.Len(t, coeffs, 65)

	// Symmetric window: zero endpoints, unity mid-point
	assert.InDelta(t, 0.0, coeffs[0], 1e-12)
	assert.InDelta(t, 0.0, coeffs[64], 1e-12)
	assert.InDelta(t, 1.0, coeffs[32], 1e-12)

	for i := 0; i < 32; i++ {
		assert.InDelta(t, coeffs[i], coeffs[64-i], 1e-12, "hann should be symmetric at %d", i)
	}
}

func TestCoherentGainMatchesWindowAverage(t *testing.T) {
	// The catalog constants are rounded calibration values; the measured
	// average of the generated coefficients should sit close to them.
	cases := map[string]float64{
		"rectangular":     0.0,
		"hann":            0.01,
		"hamming":         0.01,
		"blackman":        0.01,
		"blackman-harris": 0.07,
	}

	for name, tolerance := range cases {
		w, err := Lookup(name)
		require.NoError(t, err)

		coeffs := w.Samples(4096)
		sum := 0.0
		for _, c := range coeffs {
			sum += c
		}
		average := sum / float64(len(coeffs))

		assert.InDelta(t, w.CoherentGain, average, tolerance+1e-9,
			"%s coherent gain should match measured average", name)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"blackman", "blackman-harris", "hamming", "hann", "rectangular"}, names)
}

func TestSingleSampleWindow(t *testing.T) {
	for _, name := range Names() {
		w, err := Lookup(name)
		require.NoError(t, err)

		coeffs := w.Samples(1)
		require.Len(t, coeffs, 1)
		assert.False(t, math.IsNaN(coeffs[0]), "%s single-sample coefficient must not be NaN", name)
	}
}
