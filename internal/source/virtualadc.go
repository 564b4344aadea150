package source

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// Virtual ADC defaults: a 2.5 V tone at 50 Hz sampled at 1200 Hz,
// delivered in tenth-of-a-second batches
const (
	DefaultSampleRate = 1200.0
	DefaultBatchSize  = 120
)

// VirtualADC synthesizes coil-voltage batches on voltage/data and
// announces its acquisition parameters on adc/status. Sample phase is
// continuous across batches.
type VirtualADC struct {
	cfg    Config
	b      *bus.Bus
	logger logging.Logger
	rng    *rand.Rand
}

// NewVirtualADC creates a virtual ADC, filling in defaults for missing
// acquisition parameters
func NewVirtualADC(cfg Config, b *bus.Bus, logger logging.Logger) (*VirtualADC, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.SampleRate < 0 {
		return nil, fmt.Errorf("sample_rate must be positive, got %g", cfg.SampleRate)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("batch_size must be positive, got %d", cfg.BatchSize)
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = []SignalConfig{{FreqHz: 50, AmplitudeV: 2.5}}
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &VirtualADC{
		cfg:    cfg,
		b:      b,
		logger: logger.WithFields(logging.Fields{"component": "virtual_adc"}),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (a *VirtualADC) Name() string { return string(TypeVirtualADC) }

// Run announces the acquisition parameters, then emits one synthesized
// batch per batch period until ctx is cancelled
func (a *VirtualADC) Run(ctx context.Context) error {
	a.b.Publish(bus.Message{
		Topic:   bus.TopicADCStatus,
		Payload: bus.ADCStatus{SampleRate: a.cfg.SampleRate, NBuf: a.cfg.BatchSize},
	})

	period := time.Duration(float64(a.cfg.BatchSize) / a.cfg.SampleRate * float64(time.Second))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	a.logger.Info("virtual adc started", logging.Fields{
		"sample_rate": a.cfg.SampleRate,
		"batch_size":  a.cfg.BatchSize,
		"signals":     len(a.cfg.Signals),
		"noise_v":     a.cfg.NoiseV,
	})

	var sampleIndex int64
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("virtual adc stopped")
			return nil
		case <-ticker.C:
			batch := a.synthesize(sampleIndex)
			sampleIndex += int64(len(batch))
			a.b.Publish(bus.Message{Topic: bus.TopicVoltageData, Payload: batch})
		}
	}
}

func (a *VirtualADC) synthesize(startIndex int64) []float64 {
	batch := make([]float64, a.cfg.BatchSize)
	for i := range batch {
		t := float64(startIndex+int64(i)) / a.cfg.SampleRate
		v := 0.0
		for _, s := range a.cfg.Signals {
			v += s.AmplitudeV * math.Sin(2*math.Pi*s.FreqHz*t+s.PhaseRad)
		}
		if a.cfg.NoiseV > 0 {
			v += a.cfg.NoiseV * a.rng.NormFloat64()
		}
		batch[i] = v
	}
	return batch
}
