// Package engine implements the calculation engine: it accumulates raw
// voltage and rotor-angle samples, and once a full analysis frame is
// available runs the spectral pipeline (windowed FFT, noise-floor peak
// detection, band-power amplitude estimation, Faraday inversion) against
// a snapshot of the buffers, phase-locked to the rotor angle.
//
// Concurrency contract: a single mutex guards the buffers, the motor
// state and the configuration. It is held only for appends, snapshots
// and reconfiguration - never across the FFT itself. Analysis runs on a
// worker goroutine against its own copy of the data; results cross back
// to consumers through the bus.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/internal/telemetry"
	"github.com/fluxgatelabs/coilscope/pkg/dsp/rotor"
	"github.com/fluxgatelabs/coilscope/pkg/dsp/spectral"
	"github.com/fluxgatelabs/coilscope/pkg/dsp/window"
	"github.com/fluxgatelabs/coilscope/pkg/field"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// Peak is a fully resolved spectral peak: detection output plus the
// calibrated amplitude and the field estimate
type Peak struct {
	Freq      float64      `json:"freq"`
	Magnitude float64      `json:"magnitude"`
	Phase     float64      `json:"phase"`
	Amplitude float64      `json:"amplitude"`
	Field     field.Vector `json:"field"`
	Moment    float64      `json:"moment"`

	bin int
}

// Engine owns the rolling sample and angle buffers and orchestrates the
// analysis pipeline
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	samples *ringBuffer
	angles  *ringBuffer

	// Latest two rotor readings; per-sample angles are interpolated
	// between them on each ingested batch
	thetaPrev float64
	thetaNow  float64
	motorFreq float64

	b         *bus.Bus
	logger    logging.Logger
	metrics   *telemetry.Metrics
	estimator *spectral.Estimator

	analyzing atomic.Bool
	wg        sync.WaitGroup
}

// New creates an engine with validated configuration
func New(cfg Config, b *bus.Bus, logger logging.Logger, metrics *telemetry.Metrics) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Engine{
		cfg:       cfg,
		samples:   newRingBuffer(cfg.Nsig),
		angles:    newRingBuffer(cfg.Nsig),
		b:         b,
		logger:    logger.WithFields(logging.Fields{"component": "engine"}),
		metrics:   metrics,
		estimator: spectral.NewEstimator(),
	}, nil
}

// Config returns a copy of the current configuration
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Run subscribes to the engine's ingress topics and dispatches messages
// until ctx is cancelled. A frame in flight at teardown completes
// against its snapshot; its emission is suppressed by the context check
// before publishing.
func (e *Engine) Run(ctx context.Context) error {
	sub := e.b.Subscribe(bus.EngineIngress()...)
	defer sub.Close()

	e.logger.Info("calculation engine started", logging.Fields{
		"nsig":        e.cfg.Nsig,
		"ntot":        e.cfg.Ntot,
		"window":      e.cfg.Window,
		"rolling_fft": e.cfg.RollingFFT,
	})

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			e.logger.Info("calculation engine stopped")
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				e.wg.Wait()
				return nil
			}
			e.dispatch(ctx, msg)
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, msg bus.Message) {
	switch msg.Topic {
	case bus.TopicVoltageData:
		batch, ok := msg.Payload.([]float64)
		if !ok {
			e.logger.Warn("voltage batch has unexpected payload type", logging.Fields{"type": fmt.Sprintf("%T", msg.Payload)})
			return
		}
		e.ingest(ctx, batch)
	case bus.TopicMotorData:
		reading, ok := msg.Payload.(bus.MotorReading)
		if !ok {
			e.logger.Warn("motor reading has unexpected payload type", logging.Fields{"type": fmt.Sprintf("%T", msg.Payload)})
			return
		}
		e.updateMotor(reading)
	case bus.TopicADCStatus:
		status, ok := msg.Payload.(bus.ADCStatus)
		if !ok {
			e.logger.Warn("adc status has unexpected payload type", logging.Fields{"type": fmt.Sprintf("%T", msg.Payload)})
			return
		}
		e.updateSampleRate(status.SampleRate)
	case bus.TopicCalculationCommand:
		e.control(msg.Payload)
	}
}

// updateMotor records the newest rotor reading, shifting the previous
// one down for interpolation
func (e *Engine) updateMotor(reading bus.MotorReading) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thetaPrev = e.thetaNow
	e.motorFreq = reading.Freq
	e.thetaNow = rotor.WrapTwoPi(reading.Theta)
}

func (e *Engine) updateSampleRate(rate float64) {
	if rate <= 0 {
		e.logger.Warn("ignoring non-positive sample rate", logging.Fields{"sample_rate": rate})
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.SampleRate = rate
}

// ingest appends a voltage batch with interpolated per-sample angles
// and, once a full frame is buffered, snapshots it and hands it to an
// analysis worker. The lock covers only the append and the copy-out.
func (e *Engine) ingest(ctx context.Context, batch []float64) {
	if len(batch) == 0 {
		return
	}

	e.mu.Lock()

	thetas := rotor.Reference(e.thetaPrev, e.thetaNow, len(batch))
	// The arc between the two readings is consumed; a second batch
	// before the next reading interpolates from the newest angle only.
	e.thetaPrev = e.thetaNow

	for i, v := range batch {
		e.samples.Append(v)
		e.angles.Append(thetas[i])
	}

	e.metrics.BufferFill(float64(e.samples.Len()) / float64(e.samples.Cap()))

	if e.samples.Len() < e.cfg.Nsig {
		e.mu.Unlock()
		return
	}

	if e.analyzing.Load() {
		// The previous frame is still on the worker; drop this trigger
		// rather than queueing unbounded CPU work.
		e.mu.Unlock()
		e.metrics.FrameSkipped("busy")
		return
	}

	cfg := e.cfg
	motorFreq := e.motorFreq
	sampleSnap := e.samples.Snapshot()
	angleSnap := e.angles.Snapshot()
	if !cfg.RollingFFT {
		e.samples.Clear()
		e.angles.Clear()
	}
	e.analyzing.Store(true)
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.analyzing.Store(false)
		e.analyze(ctx, sampleSnap, angleSnap, cfg, motorFreq)
	}()
}

// analyze runs the full pipeline against a frame snapshot. Numeric
// failures are per-frame: they are logged, the frame's emission is
// skipped and the next frame proceeds normally.
func (e *Engine) analyze(ctx context.Context, samples, thetas []float64, cfg Config, motorFreq float64) {
	start := time.Now()

	win, err := window.Lookup(cfg.Window)
	if err != nil {
		e.logger.Error(err, "analysis window lookup failed", logging.Fields{"window": cfg.Window})
		e.metrics.FrameSkipped("config")
		return
	}

	periodTotal := float64(len(samples)) / cfg.SampleRate

	magnitude, phase, err := e.estimator.Estimate(samples, periodTotal, win, cfg.Ntot)
	if err != nil {
		e.logger.Error(err, "spectral estimation failed", logging.Fields{
			"samples": len(samples),
			"ntot":    cfg.Ntot,
		})
		e.metrics.FrameSkipped("numeric")
		return
	}

	detector := spectral.NewPeakDetector(cfg.NoisePercentile)
	candidates := detector.Detect(magnitude, phase, cfg.MinSNR)

	estimator := spectral.NewAmplitudeEstimator(cfg.FreqBandHz)
	observedOmega := rotor.ObservedAngularVelocity(thetas, periodTotal)
	referenceTheta := thetas[0]

	peaks := make([]Peak, 0, len(candidates))
	for _, c := range candidates {
		amplitude, err := estimator.Amplitude(magnitude, c.Freq, win.ENBW)
		if err != nil {
			e.logger.Debug("amplitude estimation rejected peak", logging.Fields{
				"freq":  c.Freq,
				"error": err.Error(),
			})
			continue
		}

		omega := 2 * math.Pi * c.Freq
		theta := rotor.WrapTwoPi(c.Phase - referenceTheta)

		vector, err := field.ToField(amplitude, omega, theta, cfg.Coil)
		if err != nil {
			e.logger.Debug("field conversion rejected peak", logging.Fields{
				"freq":  c.Freq,
				"error": err.Error(),
			})
			continue
		}

		peaks = append(peaks, Peak{
			Freq:      c.Freq,
			Magnitude: c.Magnitude,
			Phase:     c.Phase,
			Amplitude: amplitude,
			Field:     vector,
			Moment:    field.Moment(amplitude, cfg.Coil),
			bin:       c.Bin,
		})
	}

	if ctx.Err() != nil {
		// Teardown raced the analysis: discard the result so no partial
		// state reaches downstream consumers.
		return
	}

	metadata := map[string]any{"window": cfg.Window}

	e.b.Publish(bus.Message{Topic: bus.TopicFFTMags, Payload: magnitude, Metadata: metadata})
	e.b.Publish(bus.Message{Topic: bus.TopicFFTPhases, Payload: maskedPhasesDegrees(phase, peaks), Metadata: metadata})
	e.b.Publish(bus.Message{Topic: bus.TopicSignals, Payload: peaks})

	// Selection tracks the observed rotation; the motor's reported
	// frequency is the fallback when the angle buffer shows no motion.
	targetFreq := math.Abs(observedOmega) / (2 * math.Pi)
	if targetFreq <= 0 {
		targetFreq = motorFreq
	}

	if selected := selectSignal(peaks, targetFreq); selected != nil {
		e.b.Publish(bus.Message{Topic: bus.TopicSignal, Payload: *selected})
		e.b.Publish(bus.Message{Topic: bus.TopicBField, Payload: selected.Field})
	}

	e.metrics.FrameAnalyzed(len(peaks), time.Since(start))

	e.logger.Debug("analysis frame emitted", logging.Fields{
		"peaks":          len(peaks),
		"observed_omega": observedOmega,
		"duration_ms":    time.Since(start).Milliseconds(),
	})
}

// maskedPhasesDegrees zeroes the phase spectrum at non-peak bins and
// converts the surviving values to degrees for the front ends
func maskedPhasesDegrees(phase spectral.SpectrumFrame, peaks []Peak) spectral.SpectrumFrame {
	masked := spectral.SpectrumFrame{
		Freqs:  phase.Freqs,
		Values: make([]float64, len(phase.Values)),
	}
	for _, p := range peaks {
		if p.bin < len(phase.Values) {
			masked.Values[p.bin] = phase.Values[p.bin] * 180 / math.Pi
		}
	}
	return masked
}

// selectSignal picks the peak nearest the frequency implied by the
// observed rotation; with no usable rotation estimate it falls back to
// the strongest peak.
func selectSignal(peaks []Peak, targetFreq float64) *Peak {
	if len(peaks) == 0 {
		return nil
	}

	best := 0
	if targetFreq <= 0 {
		for i, p := range peaks {
			if p.Magnitude > peaks[best].Magnitude {
				best = i
			}
		}
		return &peaks[best]
	}

	for i, p := range peaks {
		if math.Abs(p.Freq-targetFreq) < math.Abs(peaks[best].Freq-targetFreq) {
			best = i
		}
	}
	return &peaks[best]
}

// control applies a partial reconfiguration atomically: the update is
// decoded and validated against a copy of the configuration, and only a
// fully valid update is applied. Nsig changes resize both buffers,
// discarding their contents. Success and failure are both reported on
// calculation/status.
func (e *Engine) control(payload any) {
	update, err := DecodeUpdate(payload)
	if err == nil {
		err = e.applyUpdate(update)
	}

	if err != nil {
		e.logger.Error(err, "reconfiguration rejected")
		e.metrics.Reconfigured(false)
		e.b.Publish(bus.Message{
			Topic:    bus.TopicCalculationStatus,
			Payload:  e.Config(),
			Metadata: map[string]any{"error": err.Error()},
		})
		return
	}

	e.metrics.Reconfigured(true)
	cfg := e.Config()
	e.logger.Info("reconfiguration applied", logging.Fields{
		"nsig":        cfg.Nsig,
		"ntot":        cfg.Ntot,
		"window":      cfg.Window,
		"min_snr":     cfg.MinSNR,
		"rolling_fft": cfg.RollingFFT,
	})
	e.b.Publish(bus.Message{Topic: bus.TopicCalculationStatus, Payload: cfg})
}

func (e *Engine) applyUpdate(update ConfigUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.cfg

	if update.AcquisitionTime != nil {
		n := int(math.Round(next.SampleRate * *update.AcquisitionTime))
		next.Nsig = n
		next.Ntot = n
	}
	if update.Nsig != nil {
		next.Nsig = *update.Nsig
	}
	if update.Ntot != nil {
		next.Ntot = *update.Ntot
	}
	if update.RollingFFT != nil {
		next.RollingFFT = *update.RollingFFT
	}
	if update.Window != nil {
		next.Window = *update.Window
	}
	if update.MinSNR != nil {
		next.MinSNR = *update.MinSNR
	}
	if update.Coil != nil {
		next.Coil = *update.Coil
	}

	if err := next.Validate(); err != nil {
		return err
	}

	resize := next.Nsig != e.cfg.Nsig
	e.cfg = next

	if resize {
		// Capacity change invalidates sample/angle alignment; contents
		// are discarded. In-flight analyses keep working on their own
		// snapshots and are unaffected.
		e.samples.Resize(next.Nsig)
		e.angles.Resize(next.Nsig)
	}

	return nil
}
