// Package configs defines the application configuration and its
// defaults. Values are layered the usual way: defaults, then the YAML
// config file, then environment variables, then command-line flags.
package configs

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/fluxgatelabs/coilscope/internal/engine"
	"github.com/fluxgatelabs/coilscope/internal/front"
	"github.com/fluxgatelabs/coilscope/internal/source"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose  bool   `mapstructure:"verbose"`
	LogLevel string `mapstructure:"log_level"`

	// Bus configuration
	Bus BusConfig `mapstructure:"bus"`

	// Calculation engine configuration
	Engine engine.Config `mapstructure:"engine"`

	// Acquisition sources
	Sources []source.Config `mapstructure:"sources"`

	// Front ends
	WebSocket front.WebSocketConfig `mapstructure:"websocket"`
	MQTT      front.MQTTConfig      `mapstructure:"mqtt"`

	// Metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// BusConfig contains message bus settings
type BusConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if err := config.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if config.Bus.QueueSize < 0 {
		return fmt.Errorf("bus queue size cannot be negative")
	}

	if config.WebSocket.Enabled && config.WebSocket.Addr == "" {
		return fmt.Errorf("websocket listen address is required when enabled")
	}

	if config.MQTT.Enabled && config.MQTT.Broker == "" {
		return fmt.Errorf("mqtt broker address is required when enabled")
	}

	if config.Metrics.Enabled && config.Metrics.Addr == "" {
		return fmt.Errorf("metrics listen address is required when enabled")
	}

	if len(config.Sources) == 0 {
		return fmt.Errorf("at least one acquisition source is required")
	}

	return nil
}
