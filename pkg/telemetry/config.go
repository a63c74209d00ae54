package telemetry

import (
	"fmt"
	"time"
)

// Config bundles the telemetry configuration for a p4forge invocation.
type Config struct {
	// ServiceName identifies the process in traces and metrics.
	ServiceName string

	// ServiceVersion is the build version string.
	ServiceVersion string

	// Logging contains structured logging configuration.
	Logging LoggingConfig

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig
}

// LoggingConfig configures the zerolog output of the CLI.
type LoggingConfig struct {
	// Verbosity is the -v repetition count: 0 is info, 1 is debug,
	// 2 or more is trace.
	Verbosity int

	// Format specifies the log format (console, json).
	Format string

	// File, when set, duplicates all log output to the given path.
	File string

	// NoColor disables ANSI colors in console output.
	NoColor bool
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected at all.
	Enabled bool

	// ListenAddress is the address for the metrics HTTP endpoint.
	// Empty means metrics are collected but not served.
	ListenAddress string

	// Path is the HTTP path for metrics (default: /metrics).
	Path string

	// Namespace is the metrics namespace prefix.
	Namespace string

	// DurationBuckets are the histogram buckets for step and run
	// durations, in seconds. Build steps run for minutes, so the
	// defaults skew much longer than typical request latencies.
	DurationBuckets []float64
}

// TracingConfig configures distributed tracing.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	Enabled bool

	// Exporter specifies the span exporter (otlp, stdout, none).
	Exporter string

	// Endpoint is the OTLP gRPC endpoint.
	Endpoint string

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64

	// ExportTimeout bounds trace export.
	ExportTimeout time.Duration

	// Insecure disables TLS for the exporter connection.
	Insecure bool
}

// DefaultConfig returns the telemetry configuration used when no flags or
// environment overrides are present: console logging at info level, metrics
// collected but not served, tracing off.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "p4forge",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Verbosity: 0,
			Format:    "console",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "p4forge",
			DurationBuckets: []float64{
				1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800, 3600,
			},
		},
		Tracing: TracingConfig{
			Enabled:       false,
			Exporter:      "stdout",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			Insecure:      true,
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", c.Logging.Format)
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "otlp", "stdout", "none":
		default:
			return fmt.Errorf("unsupported trace exporter: %s", c.Tracing.Exporter)
		}
		if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
			return fmt.Errorf("trace sampling rate must be between 0 and 1, got: %f", c.Tracing.SamplingRate)
		}
	}
	return nil
}
