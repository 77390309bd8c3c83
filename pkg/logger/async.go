package logger

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncConfig configures async buffered logging.
type AsyncConfig struct {
	// Enabled turns async logging on. When false the handler delegates
	// synchronously.
	Enabled bool

	// BufferSize is the record channel capacity (default 4096).
	BufferSize int

	// FlushInterval is how often the worker drains the buffer even when
	// no new records arrive (default 100ms).
	FlushInterval time.Duration

	// DropOnFull makes a full buffer drop records instead of blocking
	// the caller.
	DropOnFull bool

	// OnDrop is called with the number of records dropped (optional).
	OnDrop func(count int)
}

// asyncRecord carries a record together with the handler it should be
// written through, so WithAttrs/WithGroup derivatives keep their attrs.
type asyncRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// asyncHandler buffers records on a channel and writes them from a single
// worker goroutine, keeping I/O out of the request path. Derived handlers
// from WithAttrs/WithGroup share the channel, worker, and shutdown state.
type asyncHandler struct {
	handler slog.Handler
	config  AsyncConfig
	records chan asyncRecord
	wg      *sync.WaitGroup
	done    chan struct{}
	once    *sync.Once
}

// NewAsyncHandler wraps h with buffered asynchronous writes. Close must be
// called before shutdown or tail records may be lost.
func NewAsyncHandler(h slog.Handler, cfg AsyncConfig) *asyncHandler {
	if !cfg.Enabled {
		return &asyncHandler{handler: h, config: cfg}
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4096
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 100 * time.Millisecond
	}

	ah := &asyncHandler{
		handler: h,
		config:  cfg,
		records: make(chan asyncRecord, cfg.BufferSize),
		done:    make(chan struct{}),
		wg:      &sync.WaitGroup{},
		once:    &sync.Once{},
	}
	ah.wg.Add(1)
	go ah.worker()
	return ah
}

func (h *asyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *asyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, r)
	}

	// slog may reuse the record's attr backing slice after Handle returns,
	// so copy it before crossing the channel.
	record := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		record.AddAttrs(a)
		return true
	})

	rec := asyncRecord{ctx: ctx, record: record, handler: h.handler}
	if h.config.DropOnFull {
		select {
		case h.records <- rec:
		default:
			if h.config.OnDrop != nil {
				h.config.OnDrop(1)
			}
		}
		return nil
	}

	h.records <- rec
	return nil
}

func (h *asyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.handler = h.handler.WithAttrs(attrs)
	return &derived
}

func (h *asyncHandler) WithGroup(name string) slog.Handler {
	derived := *h
	derived.handler = h.handler.WithGroup(name)
	return &derived
}

func (h *asyncHandler) worker() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			h.drain()
			return
		case rec := <-h.records:
			_ = rec.handler.Handle(rec.ctx, rec.record)
		case <-ticker.C:
			h.drain()
		}
	}
}

// drain writes everything currently buffered without blocking for more.
func (h *asyncHandler) drain() {
	for {
		select {
		case rec := <-h.records:
			_ = rec.handler.Handle(rec.ctx, rec.record)
		default:
			return
		}
	}
}

// Flush writes all records buffered at the time of the call.
func (h *asyncHandler) Flush() {
	if !h.config.Enabled {
		return
	}
	h.drain()
}

// Close stops the worker and flushes remaining records. Safe to call more
// than once.
func (h *asyncHandler) Close() error {
	if !h.config.Enabled || h.once == nil {
		return nil
	}
	h.once.Do(func() {
		close(h.done)
		h.wg.Wait()
	})
	return nil
}
