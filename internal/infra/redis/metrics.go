package redis

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the cache, token store, and rate limiter. The package
// keeps a single instance in DefaultMetrics; promauto registration means a
// second NewMetrics with the same namespace would panic, so tests that need
// isolation use their own namespace.
type Metrics struct {
	operationDuration *prometheus.HistogramVec
	operationTotal    *prometheus.CounterVec
	operationErrors   *prometheus.CounterVec

	poolHits       prometheus.Gauge
	poolMisses     prometheus.Gauge
	poolTimeouts   prometheus.Gauge
	poolTotalConns prometheus.Gauge
	poolIdleConns  prometheus.Gauge
	poolStaleConns prometheus.Gauge

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	rateLimitAllowed *prometheus.CounterVec
	rateLimitDenied  *prometheus.CounterVec
}

// DefaultMetrics is the instance used by all components in this package.
var DefaultMetrics = NewMetrics("planforge")

// NewMetrics registers and returns Redis metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      name,
			Help:      help,
		})
	}
	counterVec := func(name, help, label string) *prometheus.CounterVec {
		return promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      name,
			Help:      help,
		}, []string{label})
	}

	return &Metrics{
		operationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		operationTotal:  counterVec("operations_total", "Total number of Redis operations", "operation"),
		operationErrors: counterVec("operation_errors_total", "Total number of Redis operation errors", "operation"),

		poolHits:       gauge("pool_hits_total", "Number of times a free connection was found in the pool"),
		poolMisses:     gauge("pool_misses_total", "Number of times a free connection was NOT found in the pool"),
		poolTimeouts:   gauge("pool_timeouts_total", "Number of times a wait for a connection timed out"),
		poolTotalConns: gauge("pool_total_connections", "Number of total connections in the pool"),
		poolIdleConns:  gauge("pool_idle_connections", "Number of idle connections in the pool"),
		poolStaleConns: gauge("pool_stale_connections", "Number of stale connections removed from the pool"),

		cacheHits:   counterVec("cache_hits_total", "Total number of cache hits", "cache"),
		cacheMisses: counterVec("cache_misses_total", "Total number of cache misses", "cache"),

		rateLimitAllowed: counterVec("ratelimit_allowed_total", "Total number of requests allowed by rate limiter", "limiter"),
		rateLimitDenied:  counterVec("ratelimit_denied_total", "Total number of requests denied by rate limiter", "limiter"),
	}
}

// ObserveOperation records the duration and outcome of one Redis operation.
func (m *Metrics) ObserveOperation(operation string, duration time.Duration, err error) {
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.operationTotal.WithLabelValues(operation).Inc()
	if err != nil {
		m.operationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCacheHit counts a hit for the named cache prefix.
func (m *Metrics) RecordCacheHit(cacheName string) {
	m.cacheHits.WithLabelValues(cacheName).Inc()
}

// RecordCacheMiss counts a miss for the named cache prefix.
func (m *Metrics) RecordCacheMiss(cacheName string) {
	m.cacheMisses.WithLabelValues(cacheName).Inc()
}

// RecordRateLimitResult counts an allow or deny for the named limiter.
func (m *Metrics) RecordRateLimitResult(limiterName string, allowed bool) {
	if allowed {
		m.rateLimitAllowed.WithLabelValues(limiterName).Inc()
	} else {
		m.rateLimitDenied.WithLabelValues(limiterName).Inc()
	}
}

// UpdatePoolStats copies the client's current pool counters into the gauges.
func (m *Metrics) UpdatePoolStats(client *Client) {
	if client == nil {
		return
	}
	stats := client.PoolStats()
	if stats == nil {
		return
	}

	m.poolHits.Set(float64(stats.Hits))
	m.poolMisses.Set(float64(stats.Misses))
	m.poolTimeouts.Set(float64(stats.Timeouts))
	m.poolTotalConns.Set(float64(stats.TotalConns))
	m.poolIdleConns.Set(float64(stats.IdleConns))
	m.poolStaleConns.Set(float64(stats.StaleConns))
}

// StartPoolStatsCollector samples pool stats on the given interval until the
// returned stop function is called or ctx is cancelled.
func StartPoolStatsCollector(ctx context.Context, client *Client, interval time.Duration) func() {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				DefaultMetrics.UpdatePoolStats(client)
			}
		}
	}()
	return cancel
}
