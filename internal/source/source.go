// Package source provides the acquisition sources that feed the bus:
// virtual ADC and motor simulators for development and testing, plus a
// registry so hardware-backed sources can be plugged in without touching
// the application wiring.
package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// Type identifies a source implementation
type Type string

const (
	TypeVirtualADC   Type = "virtual_adc"
	TypeVirtualMotor Type = "virtual_motor"
	TypeNop          Type = "nop"
)

// ErrUnsupportedType is returned when no factory is registered for a
// requested source type
var ErrUnsupportedType = fmt.Errorf("unsupported source type")

// SignalConfig describes one synthesized tone
type SignalConfig struct {
	FreqHz     float64 `json:"freq_hz" mapstructure:"freq_hz"`
	AmplitudeV float64 `json:"amplitude_v" mapstructure:"amplitude_v"`
	PhaseRad   float64 `json:"phase_rad" mapstructure:"phase_rad"`
}

// Config configures one acquisition source. Fields irrelevant to a given
// source type are ignored by it.
type Config struct {
	Type Type `json:"type" mapstructure:"type"`

	// Virtual ADC
	SampleRate float64        `json:"sample_rate" mapstructure:"sample_rate"`
	BatchSize  int            `json:"batch_size" mapstructure:"batch_size"`
	NoiseV     float64        `json:"noise_v" mapstructure:"noise_v"`
	Signals    []SignalConfig `json:"signals" mapstructure:"signals"`

	// Virtual motor
	RotationHz  float64 `json:"rotation_hz" mapstructure:"rotation_hz"`
	StepsPerRev int     `json:"steps_per_rev" mapstructure:"steps_per_rev"`
}

// Source is a long-running producer of bus messages. Run blocks until
// ctx is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context) error
}

// BuildFunc constructs a source from its configuration
type BuildFunc func(cfg Config, b *bus.Bus, logger logging.Logger) (Source, error)

// Factory creates sources by type
type Factory struct {
	mu       sync.RWMutex
	builders map[Type]BuildFunc
}

// NewFactory creates a factory with the built-in source types registered
func NewFactory() *Factory {
	f := &Factory{builders: make(map[Type]BuildFunc)}

	f.Register(TypeVirtualADC, func(cfg Config, b *bus.Bus, logger logging.Logger) (Source, error) {
		return NewVirtualADC(cfg, b, logger)
	})
	f.Register(TypeVirtualMotor, func(cfg Config, b *bus.Bus, logger logging.Logger) (Source, error) {
		return NewVirtualMotor(cfg, b, logger)
	})
	f.Register(TypeNop, func(Config, *bus.Bus, logging.Logger) (Source, error) {
		return NopSource{}, nil
	})

	return f
}

// Register adds or replaces the builder for a source type
func (f *Factory) Register(t Type, build BuildFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[t] = build
}

// Create builds a source from cfg
func (f *Factory) Create(cfg Config, b *bus.Bus, logger logging.Logger) (Source, error) {
	f.mu.RLock()
	build, ok := f.builders[cfg.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
	return build(cfg, b, logger)
}

// SupportedTypes returns the registered source types
func (f *Factory) SupportedTypes() []Type {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]Type, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	return types
}

// NopSource produces nothing; it exists so a configured slot can be
// disabled without special-casing the supervisor.
type NopSource struct{}

func (NopSource) Name() string { return "nop" }

func (NopSource) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
