package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SamplingConfig controls per-message log rate limiting. Records are
// grouped by level and message; the first Threshold records in each group
// pass through every Tick, then only a Rate fraction is kept.
type SamplingConfig struct {
	// Enabled turns sampling on (default false).
	Enabled bool

	// Tick is how often the per-message counters reset (default 1s).
	Tick time.Duration

	// Threshold is how many records per group pass unconditionally each
	// tick (default 100).
	Threshold uint64

	// Rate is the fraction of records kept once a group is over its
	// threshold, in [0, 1] (default 0.1).
	Rate float64

	// ErrorRate is the kept fraction for warn and error records
	// (default 1.0).
	ErrorRate float64

	// MaxCounterSize caps the number of distinct groups tracked, so a
	// flood of unique messages cannot grow memory without bound
	// (default 10000). Records past the cap are logged uncounted.
	MaxCounterSize int

	// NeverSampleMessages lists message prefixes exempt from sampling,
	// e.g. audit or security logs.
	NeverSampleMessages []string

	// OnDropped is invoked for each record dropped by sampling. Panics
	// in the callback are swallowed.
	OnDropped func(ctx context.Context, record slog.Record)

	// EnableMetrics turns on the Prometheus counters in metrics.go.
	EnableMetrics bool
}

// Sampling defaults.
const (
	DefaultSamplingTick           = time.Second
	DefaultSamplingThreshold      = 100
	DefaultSamplingRate           = 0.1
	DefaultSamplingErrorRate      = 1.0
	DefaultSamplingMaxCounterSize = 10000
)

// DefaultSamplingConfig returns production defaults with sampling off.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Enabled:        false,
		Tick:           DefaultSamplingTick,
		Threshold:      DefaultSamplingThreshold,
		Rate:           DefaultSamplingRate,
		ErrorRate:      DefaultSamplingErrorRate,
		MaxCounterSize: DefaultSamplingMaxCounterSize,
	}
}

type samplingHandler struct {
	handler     slog.Handler
	config      SamplingConfig
	counters    sync.Map // group key -> *atomic.Uint64
	counterSize atomic.Int64
	lastReset   atomic.Int64
}

// NewSamplingHandler wraps h with sampling. With sampling disabled the
// original handler is returned untouched.
func NewSamplingHandler(h slog.Handler, cfg SamplingConfig) slog.Handler {
	if !cfg.Enabled {
		return h
	}

	if cfg.Tick == 0 {
		cfg.Tick = DefaultSamplingTick
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultSamplingThreshold
	}
	if cfg.MaxCounterSize == 0 {
		cfg.MaxCounterSize = DefaultSamplingMaxCounterSize
	}

	sh := &samplingHandler{handler: h, config: cfg}
	sh.lastReset.Store(time.Now().UnixNano())
	return sh
}

func (h *samplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *samplingHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.config.EnableMetrics {
		MetricsOnProcessed(r.Level)
	}

	if h.exempt(r.Message) {
		return h.handler.Handle(ctx, r)
	}

	h.maybeResetCounters()

	if h.counterSize.Load() >= int64(h.config.MaxCounterSize) {
		// Over the group cap; log without tracking.
		return h.handler.Handle(ctx, r)
	}

	val, loaded := h.counters.LoadOrStore(r.Level.String()+":"+r.Message, &atomic.Uint64{})
	if !loaded {
		h.counterSize.Add(1)
	}
	count := val.(*atomic.Uint64).Add(1)

	if count <= h.config.Threshold {
		return h.handler.Handle(ctx, r)
	}

	rate := h.config.Rate
	if r.Level >= slog.LevelWarn {
		rate = h.config.ErrorRate
	}
	if keepSampled(count, rate) {
		return h.handler.Handle(ctx, r)
	}

	h.recordDropped(ctx, r)
	return nil
}

func (h *samplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := &samplingHandler{
		handler: h.handler.WithAttrs(attrs),
		config:  h.config,
	}
	derived.lastReset.Store(time.Now().UnixNano())
	return derived
}

func (h *samplingHandler) WithGroup(name string) slog.Handler {
	derived := &samplingHandler{
		handler: h.handler.WithGroup(name),
		config:  h.config,
	}
	derived.lastReset.Store(time.Now().UnixNano())
	return derived
}

func (h *samplingHandler) exempt(message string) bool {
	for _, prefix := range h.config.NeverSampleMessages {
		if strings.HasPrefix(message, prefix) {
			return true
		}
	}
	return false
}

// keepSampled decides deterministically from the count, so the kept
// fraction is stable regardless of timing.
func keepSampled(count uint64, rate float64) bool {
	if rate >= 1.0 {
		return true
	}
	if rate <= 0.0 {
		return false
	}
	return count%uint64(1.0/rate) == 0
}

func (h *samplingHandler) maybeResetCounters() {
	now := time.Now().UnixNano()
	last := h.lastReset.Load()
	if now-last < h.config.Tick.Nanoseconds() {
		return
	}
	// CAS so only one goroutine clears per tick.
	if !h.lastReset.CompareAndSwap(last, now) {
		return
	}
	h.counters.Range(func(key, _ any) bool {
		h.counters.Delete(key)
		return true
	})
	h.counterSize.Store(0)
	if h.config.EnableMetrics {
		SetSamplingCounterSize(0)
	}
}

func (h *samplingHandler) recordDropped(ctx context.Context, r slog.Record) {
	if h.config.EnableMetrics {
		logsDroppedTotal.WithLabelValues(levelToString(r.Level)).Inc()
	}
	if h.config.OnDropped == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	h.config.OnDropped(ctx, r)
}

// DroppedLogsCounter is a ready-made OnDropped callback target for counting
// sampled-away records.
type DroppedLogsCounter struct {
	total atomic.Uint64
}

func NewDroppedLogsCounter() *DroppedLogsCounter {
	return &DroppedLogsCounter{}
}

func (c *DroppedLogsCounter) Increment(_ context.Context, _ slog.Record) {
	c.total.Add(1)
}

func (c *DroppedLogsCounter) Total() uint64 {
	return c.total.Load()
}

func (c *DroppedLogsCounter) Reset() uint64 {
	return c.total.Swap(0)
}
