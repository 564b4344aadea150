// Package rotor aligns spectral phase measurements with the angular
// position of the rotating reference. Rotor angle arrives as coarse
// readings, roughly one per sample batch; this package reconstructs a
// best-effort per-sample angle between consecutive readings and derives
// the observed angular velocity over an analysis frame.
package rotor

import "math"

const twoPi = 2 * math.Pi

// WrapTwoPi wraps an angle into [0, 2pi)
func WrapTwoPi(theta float64) float64 {
	theta = math.Mod(theta, twoPi)
	if theta < 0 {
		theta += twoPi
	}
	return theta
}

// Reference unwraps the two-point sequence [anglePrev, angleNow] so the
// jump between them is the shorter arc, linearly interpolates n points
// between the unwrapped endpoints and wraps each result back into
// [0, 2pi). This is an approximation: the rotor is read once per batch,
// not once per sample, so the interpolation assumes constant velocity
// across the batch. When no previous reading exists the caller passes
// anglePrev == angleNow, which yields n copies of the reading.
func Reference(anglePrev, angleNow float64, n int) []float64 {
	if n <= 0 {
		return nil
	}

	// Two-point unwrap: shift angleNow by whole turns until the jump is
	// at most half a turn
	delta := angleNow - anglePrev
	for delta > math.Pi {
		delta -= twoPi
	}
	for delta < -math.Pi {
		delta += twoPi
	}

	angles := make([]float64, n)
	if n == 1 {
		angles[0] = WrapTwoPi(angleNow)
		return angles
	}

	step := delta / float64(n-1)
	for i := range angles {
		angles[i] = WrapTwoPi(anglePrev + step*float64(i))
	}
	return angles
}

// Unwrap removes 2pi discontinuities from a wrapped angle sequence,
// returning a continuous copy
func Unwrap(thetas []float64) []float64 {
	unwrapped := make([]float64, len(thetas))
	if len(thetas) == 0 {
		return unwrapped
	}

	unwrapped[0] = thetas[0]
	offset := 0.0
	for i := 1; i < len(thetas); i++ {
		delta := thetas[i] - thetas[i-1]
		if delta > math.Pi {
			offset -= twoPi
		} else if delta < -math.Pi {
			offset += twoPi
		}
		unwrapped[i] = thetas[i] + offset
	}
	return unwrapped
}

// ObservedAngularVelocity unwraps the per-sample angle sequence of one
// analysis frame and returns the mean angular velocity in rad/s. The
// engine uses this to pick the spectral peak that corresponds to the
// physical rotation rather than a harmonic or noise peak.
func ObservedAngularVelocity(thetas []float64, totalTime float64) float64 {
	if len(thetas) < 2 || totalTime <= 0 {
		return 0
	}

	unwrapped := Unwrap(thetas)
	return (unwrapped[len(unwrapped)-1] - unwrapped[0]) / totalTime
}
