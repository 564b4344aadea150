// Package telemetry exposes Prometheus metrics for the analysis
// pipeline. All observation methods are nil-receiver safe so callers can
// run with metrics disabled without guarding every call site.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// Metrics holds the pipeline instrumentation
type Metrics struct {
	registry *prometheus.Registry

	framesAnalyzed   prometheus.Counter
	framesSkipped    *prometheus.CounterVec
	peaksDetected    prometheus.Counter
	analysisDuration prometheus.Histogram
	bufferFill       prometheus.Gauge
	reconfigurations *prometheus.CounterVec
}

// New creates the metric set on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		framesAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Name: "coilscope_frames_analyzed_total",
			Help: "Analysis frames completed and emitted",
		}),
		framesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coilscope_frames_skipped_total",
			Help: "Analysis frames skipped, by reason",
		}, []string{"reason"}),
		peaksDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "coilscope_peaks_detected_total",
			Help: "Spectral peaks accepted across all frames",
		}),
		analysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coilscope_analysis_duration_seconds",
			Help:    "Wall time per analysis frame",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		bufferFill: factory.NewGauge(prometheus.GaugeOpts{
			Name: "coilscope_sample_buffer_fill_ratio",
			Help: "Sample buffer length over capacity",
		}),
		reconfigurations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coilscope_reconfigurations_total",
			Help: "Reconfiguration commands, by result",
		}, []string{"result"}),
	}
}

// FrameAnalyzed records a completed frame with its peak count and duration
func (m *Metrics) FrameAnalyzed(peaks int, duration time.Duration) {
	if m == nil {
		return
	}
	m.framesAnalyzed.Inc()
	m.peaksDetected.Add(float64(peaks))
	m.analysisDuration.Observe(duration.Seconds())
}

// FrameSkipped records a frame that produced no emission
func (m *Metrics) FrameSkipped(reason string) {
	if m == nil {
		return
	}
	m.framesSkipped.WithLabelValues(reason).Inc()
}

// BufferFill records the sample buffer fill ratio
func (m *Metrics) BufferFill(ratio float64) {
	if m == nil {
		return
	}
	m.bufferFill.Set(ratio)
}

// Reconfigured records a reconfiguration attempt
func (m *Metrics) Reconfigured(applied bool) {
	if m == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "rejected"
	}
	m.reconfigurations.WithLabelValues(result).Inc()
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs a metrics HTTP server on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("metrics server listening", logging.Fields{"addr": addr})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
