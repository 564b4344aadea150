package configs

import (
	"github.com/spf13/viper"

	"github.com/fluxgatelabs/coilscope/internal/engine"
	"github.com/fluxgatelabs/coilscope/internal/front"
	"github.com/fluxgatelabs/coilscope/internal/source"
	"github.com/fluxgatelabs/coilscope/pkg/field"
)

// SetDefaults sets default configuration values for all components
func SetDefaults(v *viper.Viper) {
	// Application defaults
	if !v.IsSet("verbose") {
		v.Set("verbose", false)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", "info")
	}

	// Bus defaults
	if !v.IsSet("bus.queue_size") {
		v.Set("bus.queue_size", 64)
	}

	setEngineDefaults(v)
	setSourceDefaults(v)
	setFrontDefaults(v)
}

// setEngineDefaults sets the calculation engine defaults: a one-second
// frame at 1200 S/s with no zero padding and no windowing
func setEngineDefaults(v *viper.Viper) {
	if !v.IsSet("engine.nsig") {
		v.Set("engine.nsig", 1024)
	}
	if !v.IsSet("engine.ntot") {
		v.Set("engine.ntot", 1024)
	}
	if !v.IsSet("engine.rolling_fft") {
		v.Set("engine.rolling_fft", false)
	}
	if !v.IsSet("engine.window") {
		v.Set("engine.window", "rectangular")
	}
	if !v.IsSet("engine.min_snr") {
		v.Set("engine.min_snr", 5.0)
	}
	if !v.IsSet("engine.sample_rate") {
		v.Set("engine.sample_rate", 1200.0)
	}
	if !v.IsSet("engine.freq_band_hz") {
		v.Set("engine.freq_band_hz", 3.0)
	}
	if !v.IsSet("engine.noise_percentile") {
		v.Set("engine.noise_percentile", 0.9)
	}

	// Sense coil defaults
	if !v.IsSet("engine.coil.windings") {
		v.Set("engine.coil.windings", 1000.0)
	}
	if !v.IsSet("engine.coil.area_m2") {
		v.Set("engine.coil.area_m2", 0.01)
	}
	if !v.IsSet("engine.coil.impedance_ohms") {
		v.Set("engine.coil.impedance_ohms", 90.0)
	}
}

// setSourceDefaults configures the virtual ADC and motor pair used when
// no hardware sources are configured
func setSourceDefaults(v *viper.Viper) {
	if !v.IsSet("sources") {
		v.Set("sources", []map[string]any{
			{
				"type":        string(source.TypeVirtualADC),
				"sample_rate": 1200.0,
				"batch_size":  120,
				"noise_v":     0.05,
				"signals": []map[string]any{
					{"freq_hz": 50.0, "amplitude_v": 2.5},
				},
			},
			{
				"type":          string(source.TypeVirtualMotor),
				"rotation_hz":   50.0,
				"steps_per_rev": 20,
			},
		})
	}
}

// setFrontDefaults sets front end and metrics defaults
func setFrontDefaults(v *viper.Viper) {
	if !v.IsSet("websocket.enabled") {
		v.Set("websocket.enabled", true)
	}
	if !v.IsSet("websocket.addr") {
		v.Set("websocket.addr", ":8081")
	}
	if !v.IsSet("websocket.path") {
		v.Set("websocket.path", "/ws")
	}

	if !v.IsSet("mqtt.enabled") {
		v.Set("mqtt.enabled", false)
	}
	if !v.IsSet("mqtt.broker") {
		v.Set("mqtt.broker", "tcp://localhost:1883")
	}
	if !v.IsSet("mqtt.topic_prefix") {
		v.Set("mqtt.topic_prefix", "coilscope")
	}
	if !v.IsSet("mqtt.qos") {
		v.Set("mqtt.qos", 0)
	}

	if !v.IsSet("metrics.enabled") {
		v.Set("metrics.enabled", true)
	}
	if !v.IsSet("metrics.addr") {
		v.Set("metrics.addr", ":9090")
	}
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	return &Config{
		Verbose:  false,
		LogLevel: "info",

		Bus: BusConfig{QueueSize: 64},

		Engine: GetDefaultEngineConfig(),

		Sources: []source.Config{
			{
				Type:       source.TypeVirtualADC,
				SampleRate: 1200,
				BatchSize:  120,
				NoiseV:     0.05,
				Signals: []source.SignalConfig{
					{FreqHz: 50, AmplitudeV: 2.5},
				},
			},
			{
				Type:        source.TypeVirtualMotor,
				RotationHz:  50,
				StepsPerRev: 20,
			},
		},

		WebSocket: front.WebSocketConfig{
			Enabled: true,
			Addr:    ":8081",
			Path:    "/ws",
		},

		MQTT: front.MQTTConfig{
			Enabled:     false,
			Broker:      "tcp://localhost:1883",
			TopicPrefix: "coilscope",
		},

		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// GetDefaultEngineConfig returns the default calculation engine settings
func GetDefaultEngineConfig() engine.Config {
	return engine.Config{
		Nsig:            1024,
		Ntot:            1024,
		RollingFFT:      false,
		Window:          "rectangular",
		MinSNR:          5,
		SampleRate:      1200,
		FreqBandHz:      3,
		NoisePercentile: 0.9,
		Coil:            GetDefaultCoil(),
	}
}

// GetDefaultCoil returns the default sense coil parameters
func GetDefaultCoil() field.Coil {
	return field.Coil{
		Windings:      1000,
		AreaM2:        0.01,
		ImpedanceOhms: 90,
	}
}
