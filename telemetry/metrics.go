// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ClipRequests         *prometheus.CounterVec // label: outcome
	ClipResolveFallbacks prometheus.Counter

	// Histograms (seconds)
	ClipDuration     prometheus.Observer
	UpstreamDuration *prometheus.HistogramVec // labels: op, status

	// Gauges
	ClipsInFlight prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ClipRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "clip_requests_total", Help: "Clip requests by outcome"}, []string{"outcome"})
		ClipResolveFallbacks = promauto.NewCounter(prometheus.CounterOpts{Name: "clip_resolve_fallbacks_total", Help: "Created clips answered with the constructed URL because lookup failed"})
		ClipDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "clip_request_duration_seconds", Help: "End-to-end clip orchestration duration seconds", Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 6, 8, 10, 15, 30}})
		UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "helix_request_duration_seconds", Help: "Helix API call duration seconds", Buckets: prometheus.DefBuckets}, []string{"op", "status"})
		ClipsInFlight = promauto.NewGauge(prometheus.GaugeOpts{Name: "clip_requests_in_flight", Help: "Clip orchestrations currently running"})
	})
}

// CountClip increments the outcome counter.
func CountClip(outcome string) {
	if ClipRequests != nil {
		ClipRequests.WithLabelValues(outcome).Inc()
	}
}

// CountResolveFallback records a lookup that fell back to the constructed URL.
func CountResolveFallback() {
	if ClipResolveFallbacks != nil {
		ClipResolveFallbacks.Inc()
	}
}

// ObserveUpstream records one Helix call.
func ObserveUpstream(op, status string, d time.Duration) {
	if UpstreamDuration != nil {
		UpstreamDuration.WithLabelValues(op, status).Observe(d.Seconds())
	}
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func TrackInFlight() func() {
	if ClipsInFlight == nil {
		return func() {}
	}
	ClipsInFlight.Inc()
	return ClipsInFlight.Dec
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
