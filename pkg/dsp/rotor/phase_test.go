package rotor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceConstantAngle(t *testing.T) {
	angles := Reference(1.5, 1.5, 8)
	require.Len(t, angles, 8)
	for _, a := range angles {
		assert.InDelta(t, 1.5, a, 1e-12)
	}
}

func TestReferenceInterpolatesLinearly(t *testing.T) {
	angles := Reference(0.0, 1.0, 5)
	require.Len(t, angles, 5)

	expected := []float64{0.0, 0.25, 0.5, 0.75, 1.0}
	for i, want := range expected {
		assert.InDelta(t, want, angles[i], 1e-12)
	}
}

func TestReferenceUnwrapsThroughZero(t *testing.T) {
	// 6.2 rad -> 0.1 rad crosses the 2pi wrap; the interpolation must
	// pass monotonically through the wrap, not jump backwards.
	angles := Reference(6.2, 0.1, 10)
	require.Len(t, angles, 10)

	unwrapped := Unwrap(angles)
	for i := 1; i < len(unwrapped); i++ {
		assert.Greater(t, unwrapped[i], unwrapped[i-1],
			"interpolated angle must increase monotonically through the wrap")
	}

	assert.InDelta(t, 6.2, angles[0], 1e-12)
	assert.InDelta(t, 0.1, angles[len(angles)-1], 1e-9)

	for _, a := range angles {
		assert.GreaterOrEqual(t, a, 0.0)
		assert.Less(t, a, 2*math.Pi)
	}
}

func TestReferenceTakesShorterArcBackwards(t *testing.T) {
	// 0.1 -> 6.2 should be a small negative step, not a near-full turn
	angles := Reference(0.1, 6.2, 3)
	require.Len(t, angles, 3)

	assert.InDelta(t, 0.1, angles[0], 1e-12)
	// Midpoint sits just below the wrap, between the endpoints
	assert.InDelta(t, WrapTwoPi(0.1-(0.1+2*math.Pi-6.2)/2), angles[1], 1e-9)
	assert.InDelta(t, 6.2, angles[2], 1e-9)
}

func TestReferenceEdgeCounts(t *testing.T) {
	assert.Nil(t, Reference(0, 1, 0))
	assert.Nil(t, Reference(0, 1, -3))

	single := Reference(0.5, 1.5, 1)
	require.Len(t, single, 1)
	assert.InDelta(t, 1.5, single[0], 1e-12)
}

func TestUnwrapContinuity(t *testing.T) {
	// A steadily advancing rotor wrapped into [0, 2pi)
	var wrapped []float64
	for i := 0; i < 100; i++ {
		wrapped = append(wrapped, WrapTwoPi(0.2*float64(i)))
	}

	unwrapped := Unwrap(wrapped)
	for i, u := range unwrapped {
		assert.InDelta(t, 0.2*float64(i), u, 1e-9)
	}
}

func TestObservedAngularVelocity(t *testing.T) {
	// One full turn in one second: 2pi rad/s
	var thetas []float64
	n := 100
	for i := 0; i < n; i++ {
		thetas = append(thetas, WrapTwoPi(2*math.Pi*float64(i)/float64(n-1)))
	}

	omega := ObservedAngularVelocity(thetas, 1.0)
	assert.InDelta(t, 2*math.Pi, omega, 1e-6)
}

func TestObservedAngularVelocityDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, ObservedAngularVelocity(nil, 1.0))
	assert.Equal(t, 0.0, ObservedAngularVelocity([]float64{1.0}, 1.0))
	assert.Equal(t, 0.0, ObservedAngularVelocity([]float64{1.0, 2.0}, 0))
}

func TestWrapTwoPi(t *testing.T) {
	assert.InDelta(t, 0.0, WrapTwoPi(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, WrapTwoPi(-math.Pi), 1e-12)
	assert.InDelta(t, 0.5, WrapTwoPi(0.5+4*math.Pi), 1e-9)
}
