package engine

import (
	"fmt"
	"math"

	"github.com/fluxgatelabs/coilscope/pkg/dsp/window"
	"github.com/fluxgatelabs/coilscope/pkg/field"
)

// ErrUnknownConfigField is returned when a reconfiguration payload names
// a field the engine does not recognize; the whole update is rejected.
var ErrUnknownConfigField = fmt.Errorf("unknown configuration field")

// Config is the engine's runtime configuration. It is mutated only by
// reconfiguration commands, under the same lock as the sample buffers,
// because Nsig changes must resize the buffers atomically with respect
// to concurrent appends.
type Config struct {
	// Nsig is the analysis window length in samples; the buffers are
	// sized to it. Ntot is the zero-padded FFT length, Ntot >= Nsig.
	Nsig int `json:"nsig" mapstructure:"nsig"`
	Ntot int `json:"ntot" mapstructure:"ntot"`

	// RollingFFT keeps the buffer across frames (sliding-window
	// spectra); otherwise the buffer is drained after each frame.
	RollingFFT bool `json:"rolling_fft" mapstructure:"rolling_fft"`

	Window string  `json:"window" mapstructure:"window"`
	MinSNR float64 `json:"min_snr" mapstructure:"min_snr"`

	// SampleRate in Hz is supplied by the acquisition source via
	// adc/status and is not part of reconfiguration payloads.
	SampleRate float64 `json:"sample_rate" mapstructure:"sample_rate"`

	// FreqBandHz is the half-width of the per-peak amplitude
	// integration band; NoisePercentile the fraction of bins treated
	// as noise for the floor estimate.
	FreqBandHz      float64 `json:"freq_band_hz" mapstructure:"freq_band_hz"`
	NoisePercentile float64 `json:"noise_percentile" mapstructure:"noise_percentile"`

	Coil field.Coil `json:"coil" mapstructure:"coil"`
}

// Validate checks the configuration invariants
func (c Config) Validate() error {
	if c.Nsig <= 0 {
		return fmt.Errorf("nsig must be positive, got %d", c.Nsig)
	}
	if c.Ntot < c.Nsig {
		return fmt.Errorf("ntot (%d) must be at least nsig (%d)", c.Ntot, c.Nsig)
	}
	if c.MinSNR <= 0 {
		return fmt.Errorf("min_snr must be positive, got %g", c.MinSNR)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %g", c.SampleRate)
	}
	if _, err := window.Lookup(c.Window); err != nil {
		return err
	}
	return nil
}

// ConfigUpdate is a partial reconfiguration request. Every legal field
// is enumerated here; anything else in a payload is rejected before any
// field is applied. Setting AcquisitionTime recomputes Nsig and Ntot
// from the current sample rate.
type ConfigUpdate struct {
	AcquisitionTime *float64    `json:"acquisition_time,omitempty"`
	Nsig            *int        `json:"nsig,omitempty"`
	Ntot            *int        `json:"ntot,omitempty"`
	RollingFFT      *bool       `json:"rolling_fft,omitempty"`
	Window          *string     `json:"window,omitempty"`
	MinSNR          *float64    `json:"min_snr,omitempty"`
	Coil            *field.Coil `json:"coil,omitempty"`
}

// DecodeUpdate converts a command payload into a ConfigUpdate. Typed
// payloads pass through; generic JSON maps are decoded field by field
// with unknown keys rejected via ErrUnknownConfigField.
func DecodeUpdate(payload any) (ConfigUpdate, error) {
	switch p := payload.(type) {
	case ConfigUpdate:
		return p, nil
	case *ConfigUpdate:
		return *p, nil
	case map[string]any:
		return decodeUpdateMap(p)
	default:
		return ConfigUpdate{}, fmt.Errorf("unsupported command payload type %T", payload)
	}
}

func decodeUpdateMap(fields map[string]any) (ConfigUpdate, error) {
	var update ConfigUpdate

	for key, value := range fields {
		switch key {
		case "acquisition_time":
			v, err := toFloat(key, value)
			if err != nil {
				return ConfigUpdate{}, err
			}
			update.AcquisitionTime = &v
		case "nsig":
			v, err := toInt(key, value)
			if err != nil {
				return ConfigUpdate{}, err
			}
			update.Nsig = &v
		case "ntot":
			v, err := toInt(key, value)
			if err != nil {
				return ConfigUpdate{}, err
			}
			update.Ntot = &v
		case "rolling_fft":
			v, ok := value.(bool)
			if !ok {
				return ConfigUpdate{}, fmt.Errorf("field %q: expected bool, got %T", key, value)
			}
			update.RollingFFT = &v
		case "window":
			v, ok := value.(string)
			if !ok {
				return ConfigUpdate{}, fmt.Errorf("field %q: expected string, got %T", key, value)
			}
			update.Window = &v
		case "min_snr":
			v, err := toFloat(key, value)
			if err != nil {
				return ConfigUpdate{}, err
			}
			update.MinSNR = &v
		case "coil":
			coil, err := decodeCoil(value)
			if err != nil {
				return ConfigUpdate{}, err
			}
			update.Coil = &coil
		default:
			return ConfigUpdate{}, fmt.Errorf("%w: %q", ErrUnknownConfigField, key)
		}
	}

	return update, nil
}

func decodeCoil(value any) (field.Coil, error) {
	fields, ok := value.(map[string]any)
	if !ok {
		return field.Coil{}, fmt.Errorf("field \"coil\": expected object, got %T", value)
	}

	var coil field.Coil
	for key, v := range fields {
		f, err := toFloat("coil."+key, v)
		if err != nil {
			return field.Coil{}, err
		}
		switch key {
		case "windings":
			coil.Windings = f
		case "area_m2":
			coil.AreaM2 = f
		case "impedance_ohms":
			coil.ImpedanceOhms = f
		default:
			return field.Coil{}, fmt.Errorf("%w: %q", ErrUnknownConfigField, "coil."+key)
		}
	}
	return coil, nil
}

func toFloat(key string, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("field %q: expected number, got %T", key, value)
	}
}

func toInt(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("field %q: expected integer, got %g", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("field %q: expected integer, got %T", key, value)
	}
}
