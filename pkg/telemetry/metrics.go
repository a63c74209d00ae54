package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics collects Prometheus metrics for build orchestration. A Metrics
// built from a disabled config is a valid no-op collector.
type Metrics struct {
	config MetricsConfig

	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	packageBuilds *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec

	activeRuns   prometheus.Gauge
	runningTasks prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of build runs started",
			},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of build runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of build run execution in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		packageBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "package_builds_total",
				Help:      "Total number of package builds by package and terminal status",
			},
			[]string{"package", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "package_build_duration_seconds",
				Help:      "Duration of one package's full step sequence in seconds",
				Buckets:   buckets,
			},
			[]string{"package"},
		),

		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Current number of active build runs",
			},
		),
		runningTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "running_tasks",
				Help:      "Current number of package builds in flight",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.packageBuilds,
		m.stepDuration,
		m.activeRuns,
		m.runningTasks,
	)

	return m, nil
}

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted() {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.Inc()
	m.activeRuns.Inc()
}

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.activeRuns.Dec()
}

// RecordTaskStarted tracks a package build entering a worker.
func (m *Metrics) RecordTaskStarted() {
	if m.runningTasks == nil {
		return
	}
	m.runningTasks.Inc()
}

// RecordTaskFinished records a package build reaching a terminal status.
// wasRunning must be true only for tasks that were previously recorded as
// started, so that skipped tasks do not drain the in-flight gauge.
func (m *Metrics) RecordTaskFinished(pkg, status string, duration time.Duration, wasRunning bool) {
	if m.packageBuilds == nil {
		return
	}
	m.packageBuilds.WithLabelValues(pkg, status).Inc()
	m.stepDuration.WithLabelValues(pkg).Observe(duration.Seconds())
	if wasRunning {
		m.runningTasks.Dec()
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes the metrics endpoint on the configured listen address in a
// background goroutine. It is a no-op when metrics are disabled or no
// listen address is set.
func (m *Metrics) Serve(logger zerolog.Logger) {
	if !m.config.Enabled || m.config.ListenAddress == "" {
		return
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Str("addr", m.config.ListenAddress).Msg("metrics server stopped")
		}
	}()
}
