// Package field converts calibrated voltage amplitudes into magnetic
// field estimates via Faraday's-law inversion for a rotating sense coil.
package field

import (
	"fmt"
	"math"
)

// ErrDegenerateFrequency is returned when the angular frequency is zero:
// the Faraday inversion divides by omega, so a zero here is a programming
// error upstream, not a recoverable measurement condition.
var ErrDegenerateFrequency = fmt.Errorf("angular frequency must be non-zero")

// Coil describes the physical sense coil
type Coil struct {
	Windings      float64 `json:"windings" mapstructure:"windings"`
	AreaM2        float64 `json:"area_m2" mapstructure:"area_m2"`
	ImpedanceOhms float64 `json:"impedance_ohms" mapstructure:"impedance_ohms"`
}

// Vector is a 2D field estimate in the plane of rotation, in tesla
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToField inverts Faraday's law for a coil rotating at omegaRadS with
// instantaneous angle thetaRad: the induced EMF amplitude V relates to
// the field magnitude B by V = N*A*omega*B. The returned vector points
// along (-cos(theta), sin(theta)).
func ToField(amplitudeVolts, omegaRadS, thetaRad float64, coil Coil) (Vector, error) {
	if omegaRadS == 0 {
		return Vector{}, ErrDegenerateFrequency
	}

	magnitude := amplitudeVolts / (coil.Windings * coil.AreaM2 * omegaRadS)
	return Vector{
		X: magnitude * -math.Cos(thetaRad),
		Y: magnitude * math.Sin(thetaRad),
	}, nil
}

// Moment converts the measured coil voltage into the equivalent magnetic
// moment of the coil: the induced current (via the coil impedance) times
// turns and area.
func Moment(volts float64, coil Coil) float64 {
	if coil.ImpedanceOhms == 0 {
		return 0
	}
	amps := volts / coil.ImpedanceOhms
	return coil.Windings * coil.AreaM2 * amps
}
