package profscale

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/profscale/profscale/internal/logging"
	"github.com/profscale/profscale/internal/metrics"
)

// NewSlogLogger creates a Logger backed by the given slog logger.
//
// Parameters:
//   - logger: slog logger; nil uses slog.Default()
//
// Returns:
//   - Logger: Structured logger for WithLogger
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		return logging.NewSlogDefault()
	}

	return logging.NewSlog(logger)
}

// NewNopLogger creates a Logger that discards everything.
func NewNopLogger() Logger {
	return logging.NewNop()
}

// NewPrometheusMetrics creates a Prometheus-backed metrics collector.
//
// Metrics are registered lazily on first use, so an unused collector never
// pollutes the registry.
//
// Parameters:
//   - reg: Prometheus registerer; nil uses prometheus.DefaultRegisterer
//   - namespace: Metrics namespace; "" defaults to "profscale"
//
// Returns:
//   - MetricsCollector: Collector for WithMetrics
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}

// NewNopMetrics creates a metrics collector that discards everything.
func NewNopMetrics() MetricsCollector {
	return metrics.NewNop()
}
