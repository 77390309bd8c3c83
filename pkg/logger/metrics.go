package logger

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Sampling observability. Collectors are created unregistered so importing
// this package has no side effects; call RegisterMetrics to expose them.
var (
	logsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planforge",
			Subsystem: "logger",
			Name:      "logs_dropped_total",
			Help:      "Total number of logs dropped by sampling",
		},
		[]string{"level"},
	)

	logsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "planforge",
			Subsystem: "logger",
			Name:      "logs_processed_total",
			Help:      "Total number of logs processed (before sampling)",
		},
		[]string{"level"},
	)

	samplingCounterSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "planforge",
			Subsystem: "logger",
			Name:      "sampling_counter_size",
			Help:      "Number of distinct log message groups being tracked",
		},
	)

	registerOnce sync.Once
)

// RegisterMetrics registers logger metrics with the given registry, or the
// default Prometheus registry when nil. Safe to call multiple times.
func RegisterMetrics(registry prometheus.Registerer) {
	registerOnce.Do(func() {
		if registry == nil {
			registry = prometheus.DefaultRegisterer
		}
		for _, c := range []prometheus.Collector{
			logsDroppedTotal,
			logsProcessedTotal,
			samplingCounterSize,
		} {
			_ = registry.Register(c)
		}
	})
}

// MetricsOnProcessed counts a record before the sampling decision.
func MetricsOnProcessed(level slog.Level) {
	logsProcessedTotal.WithLabelValues(levelToString(level)).Inc()
}

// SetSamplingCounterSize records the current number of tracked groups.
func SetSamplingCounterSize(size int) {
	samplingCounterSize.Set(float64(size))
}

// DroppedTotal reads back the dropped-log counter for a level. Works
// without a registry, so callers can observe the counter before
// RegisterMetrics has run.
func DroppedTotal(level string) float64 {
	c, err := logsDroppedTotal.GetMetricWithLabelValues(level)
	if err != nil {
		return 0
	}

	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return 0
}

func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
