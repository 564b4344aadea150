package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/pkg/dsp/rotor"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// Virtual motor defaults: 50 Hz rotation reported 20 times per turn
const (
	DefaultRotationHz  = 50.0
	DefaultStepsPerRev = 20
)

// VirtualMotor simulates the rotor encoder: it advances the angle by a
// fixed step at a fixed rate and reports each position on motor/data
type VirtualMotor struct {
	cfg    Config
	b      *bus.Bus
	logger logging.Logger
}

// NewVirtualMotor creates a virtual motor, filling in defaults for
// missing rotation parameters
func NewVirtualMotor(cfg Config, b *bus.Bus, logger logging.Logger) (*VirtualMotor, error) {
	if cfg.RotationHz == 0 {
		cfg.RotationHz = DefaultRotationHz
	}
	if cfg.RotationHz < 0 {
		return nil, fmt.Errorf("rotation_hz must be positive, got %g", cfg.RotationHz)
	}
	if cfg.StepsPerRev == 0 {
		cfg.StepsPerRev = DefaultStepsPerRev
	}
	if cfg.StepsPerRev < 0 {
		return nil, fmt.Errorf("steps_per_rev must be positive, got %d", cfg.StepsPerRev)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &VirtualMotor{
		cfg:    cfg,
		b:      b,
		logger: logger.WithFields(logging.Fields{"component": "virtual_motor"}),
	}, nil
}

func (m *VirtualMotor) Name() string { return string(TypeVirtualMotor) }

// Run publishes a rotor reading per encoder step until ctx is cancelled
func (m *VirtualMotor) Run(ctx context.Context) error {
	step := 2 * math.Pi / float64(m.cfg.StepsPerRev)
	period := time.Duration(1.0 / (m.cfg.RotationHz * float64(m.cfg.StepsPerRev)) * float64(time.Second))

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	m.logger.Info("virtual motor started", logging.Fields{
		"rotation_hz":   m.cfg.RotationHz,
		"steps_per_rev": m.cfg.StepsPerRev,
	})

	theta := 0.0
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("virtual motor stopped")
			return nil
		case <-ticker.C:
			theta = rotor.WrapTwoPi(theta + step)
			m.b.Publish(bus.Message{
				Topic:   bus.TopicMotorData,
				Payload: bus.MotorReading{Theta: theta, Freq: m.cfg.RotationHz},
			})
		}
	}
}
