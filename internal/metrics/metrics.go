// Package metrics exposes prometheus collectors for the streaming pipeline.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
	initialized  atomic.Bool

	// Stream metrics
	PacketsReceived *prometheus.CounterVec
	PacketsRejected *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge

	// Window metrics
	WindowsProcessed  *prometheus.CounterVec
	WindowErrors      *prometheus.CounterVec
	StrokeDetections  *prometheus.CounterVec
	FlagsRaised       *prometheus.CounterVec
	WindowProcessTime *prometheus.HistogramVec

	// Worker pool metrics
	PoolQueueDepth prometheus.Gauge
	PoolRejected   prometheus.Counter
	PoolPanics     prometheus.Counter
)

// Init creates the collectors on a private registry. Later calls are no-ops.
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		PacketsReceived = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurasense_packets_received_total",
				Help: "Total number of sample packets accepted into a buffer",
			},
			[]string{"preset"},
		)

		PacketsRejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurasense_packets_rejected_total",
				Help: "Total number of inbound frames rejected before buffering",
			},
			[]string{"reason"},
		)

		ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "neurasense_sessions_active",
			Help: "Number of open streaming sessions",
		})

		WindowsProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurasense_windows_processed_total",
				Help: "Total number of completed windows by mode and outcome",
			},
			[]string{"preset", "mode", "outcome"},
		)

		WindowErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurasense_window_errors_total",
				Help: "Total number of windows that failed analysis",
			},
			[]string{"reason"},
		)

		StrokeDetections = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurasense_stroke_detections_total",
				Help: "Total number of windows whose flag count reached the quorum",
			},
			[]string{"preset"},
		)

		FlagsRaised = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurasense_flags_raised_total",
				Help: "Total number of abnormal flags by predicate",
			},
			[]string{"flag"},
		)

		WindowProcessTime = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neurasense_window_processing_seconds",
				Help:    "Time from window handoff to result",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"preset"},
		)

		PoolQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "neurasense_pool_queue_depth",
			Help: "Number of windows waiting for a worker",
		})

		PoolRejected = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurasense_pool_rejected_total",
			Help: "Total number of windows rejected because the queue was full",
		})

		PoolPanics = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "neurasense_pool_panics_total",
			Help: "Total number of recovered panics in analysis workers",
		})

		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),

			PacketsReceived,
			PacketsRejected,
			ActiveSessions,

			WindowsProcessed,
			WindowErrors,
			StrokeDetections,
			FlagsRaised,
			WindowProcessTime,

			PoolQueueDepth,
			PoolRejected,
			PoolPanics,
		)

		initialized.Store(true)
		if logger != nil {
			logger.Info("Prometheus metrics initialized")
		}
	})
}

// Enabled reports whether Init has run. Record helpers are no-ops before.
func Enabled() bool { return initialized.Load() }

// GetRegistry returns the prometheus registry, nil before Init.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	if !Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          registry,
	})
}

func RecordPacket(preset string) {
	if Enabled() {
		PacketsReceived.WithLabelValues(preset).Inc()
	}
}

func RecordRejectedPacket(reason string) {
	if Enabled() {
		PacketsRejected.WithLabelValues(reason).Inc()
	}
}

func SetActiveSessions(n int) {
	if Enabled() {
		ActiveSessions.Set(float64(n))
	}
}

// RecordWindow counts one analysed window. mode is "active" or "baseline".
func RecordWindow(preset, mode string, stroke bool, flags []string) {
	if !Enabled() {
		return
	}
	outcome := "normal"
	if stroke {
		outcome = "stroke"
		StrokeDetections.WithLabelValues(preset).Inc()
	}
	WindowsProcessed.WithLabelValues(preset, mode, outcome).Inc()
	for _, f := range flags {
		FlagsRaised.WithLabelValues(f).Inc()
	}
}

func RecordWindowError(reason string) {
	if Enabled() {
		WindowErrors.WithLabelValues(reason).Inc()
	}
}

// ObserveWindow returns a func that records the elapsed processing time.
func ObserveWindow(preset string) func() {
	if !Enabled() {
		return func() {}
	}
	start := time.Now()
	return func() {
		WindowProcessTime.WithLabelValues(preset).Observe(time.Since(start).Seconds())
	}
}

func SetQueueDepth(n int) {
	if Enabled() {
		PoolQueueDepth.Set(float64(n))
	}
}

func RecordPoolRejected() {
	if Enabled() {
		PoolRejected.Inc()
	}
}

func RecordPoolPanic() {
	if Enabled() {
		PoolPanics.Inc()
	}
}
