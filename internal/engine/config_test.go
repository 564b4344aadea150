package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgatelabs/coilscope/pkg/field"
)

func validConfig() Config {
	return Config{
		Nsig:       1024,
		Ntot:       1024,
		Window:     "hann",
		MinSNR:     5,
		SampleRate: 1200,
		Coil:       field.Coil{Windings: 1000, AreaM2: 0.01, ImpedanceOhms: 90},
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero nsig", func(c *Config) { c.Nsig = 0 }},
		{"ntot below nsig", func(c *Config) { c.Ntot = c.Nsig - 1 }},
		{"zero min_snr", func(c *Config) { c.MinSNR = 0 }},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"unknown window", func(c *Config) { c.Window = "kaiser" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDecodeUpdateFromMap(t *testing.T) {
	// JSON numbers arrive as float64 even for integer fields
	update, err := DecodeUpdate(map[string]any{
		"nsig":        float64(2048),
		"ntot":        float64(4096),
		"rolling_fft": true,
		"window":      "blackman",
		"min_snr":     7.5,
	})
	require.NoError(t, err)

	require.NotNil(t, update.Nsig)
	assert.Equal(t, 2048, *update.Nsig)
	require.NotNil(t, update.Ntot)
	assert.Equal(t, 4096, *update.Ntot)
	require.NotNil(t, update.RollingFFT)
	assert.True(t, *update.RollingFFT)
	require.NotNil(t, update.Window)
	assert.Equal(t, "blackman", *update.Window)
	require.NotNil(t, update.MinSNR)
	assert.Equal(t, 7.5, *update.MinSNR)
	assert.Nil(t, update.AcquisitionTime)
	assert.Nil(t, update.Coil)
}

func TestDecodeUpdateRejectsUnknownField(t *testing.T) {
	_, err := DecodeUpdate(map[string]any{"min_snr": 3.0, "bogus": 1})
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestDecodeUpdateRejectsFractionalLength(t *testing.T) {
	_, err := DecodeUpdate(map[string]any{"nsig": 512.5})
	assert.Error(t, err)
}

func TestDecodeUpdateCoil(t *testing.T) {
	update, err := DecodeUpdate(map[string]any{
		"coil": map[string]any{
			"windings":       float64(500),
			"area_m2":        0.02,
			"impedance_ohms": float64(75),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, update.Coil)
	assert.Equal(t, field.Coil{Windings: 500, AreaM2: 0.02, ImpedanceOhms: 75}, *update.Coil)

	_, err = DecodeUpdate(map[string]any{
		"coil": map[string]any{"turns": float64(500)},
	})
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestDecodeUpdatePassThrough(t *testing.T) {
	snr := 4.0
	typed := ConfigUpdate{MinSNR: &snr}

	update, err := DecodeUpdate(typed)
	require.NoError(t, err)
	assert.Equal(t, typed, update)

	update, err = DecodeUpdate(&typed)
	require.NoError(t, err)
	assert.Equal(t, typed, update)
}

func TestDecodeUpdateRejectsUnsupportedPayload(t *testing.T) {
	_, err := DecodeUpdate("nsig=2048")
	assert.Error(t, err)
}
