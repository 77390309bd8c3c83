package logger

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// lockedBuffer is a goroutine-safe bytes.Buffer for handler output.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func countLines(s string) int {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0
	}
	return len(strings.Split(trimmed, "\n"))
}

func newAsyncForTest(out io.Writer, cfg AsyncConfig) (*asyncHandler, *slog.Logger) {
	h := NewAsyncHandler(slog.NewJSONHandler(out, nil), cfg)
	return h, slog.New(h)
}

func TestAsyncHandlerDisabledWritesSynchronously(t *testing.T) {
	var buf bytes.Buffer
	_, log := newAsyncForTest(&buf, AsyncConfig{Enabled: false})

	log.Info("sync write")

	if !strings.Contains(buf.String(), "sync write") {
		t.Fatal("disabled handler should write on the caller's goroutine")
	}
}

func TestAsyncHandlerFlushesOnInterval(t *testing.T) {
	out := &lockedBuffer{}
	h, log := newAsyncForTest(out, AsyncConfig{
		Enabled:       true,
		BufferSize:    64,
		FlushInterval: 10 * time.Millisecond,
	})
	defer h.Close()

	for i := 0; i < 10; i++ {
		log.Info("interval flush", "i", i)
	}
	time.Sleep(60 * time.Millisecond)

	if got := countLines(out.String()); got != 10 {
		t.Fatalf("expected 10 records after interval flush, got %d", got)
	}
}

func TestAsyncHandlerCloseFlushesTail(t *testing.T) {
	out := &lockedBuffer{}
	h, log := newAsyncForTest(out, AsyncConfig{
		Enabled:       true,
		BufferSize:    64,
		FlushInterval: time.Hour, // only Close can flush
	})

	for i := 0; i < 5; i++ {
		log.Info("tail record", "i", i)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := countLines(out.String()); got != 5 {
		t.Fatalf("expected 5 records after Close, got %d", got)
	}
}

func TestAsyncHandlerCloseIsIdempotent(t *testing.T) {
	out := &lockedBuffer{}
	h, log := newAsyncForTest(out, AsyncConfig{
		Enabled:       true,
		BufferSize:    64,
		FlushInterval: time.Hour,
	})

	log.Info("once")
	for i := 0; i < 3; i++ {
		if err := h.Close(); err != nil {
			t.Fatalf("close #%d: %v", i+1, err)
		}
	}
}

func TestAsyncHandlerFlush(t *testing.T) {
	out := &lockedBuffer{}
	h, log := newAsyncForTest(out, AsyncConfig{
		Enabled:       true,
		BufferSize:    64,
		FlushInterval: time.Hour,
	})
	defer h.Close()

	log.Info("first")
	log.Info("second")
	time.Sleep(10 * time.Millisecond)
	h.Flush()

	got := out.String()
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Fatalf("expected both records after Flush, got: %q", got)
	}
}

func TestAsyncHandlerDropOnFull(t *testing.T) {
	out := &lockedBuffer{}
	var dropped atomic.Int32
	h, log := newAsyncForTest(out, AsyncConfig{
		Enabled:       true,
		BufferSize:    4,
		FlushInterval: time.Hour,
		DropOnFull:    true,
		OnDrop:        func(n int) { dropped.Add(int32(n)) },
	})
	defer h.Close()

	for i := 0; i < 100; i++ {
		log.Info("burst", "i", i)
	}

	if dropped.Load() == 0 {
		t.Fatal("expected drops once the buffer filled")
	}
}

func TestAsyncHandlerBlocksWhenDropDisabled(t *testing.T) {
	out := &lockedBuffer{}
	h, log := newAsyncForTest(out, AsyncConfig{
		Enabled:       true,
		BufferSize:    8,
		FlushInterval: 10 * time.Millisecond,
	})
	defer h.Close()

	for i := 0; i < 50; i++ {
		log.Info("no loss", "i", i)
	}
	time.Sleep(100 * time.Millisecond)

	if got := countLines(out.String()); got != 50 {
		t.Fatalf("expected all 50 records without DropOnFull, got %d", got)
	}
}

func TestAsyncHandlerDerivedHandlersKeepAttrs(t *testing.T) {
	out := &lockedBuffer{}
	h, _ := newAsyncForTest(out, AsyncConfig{
		Enabled:       true,
		BufferSize:    64,
		FlushInterval: time.Hour,
	})

	withAttrs := slog.New(h.WithAttrs([]slog.Attr{slog.String("service", "plan")}))
	withAttrs.Info("attr record")

	withGroup := slog.New(h.WithGroup("request"))
	withGroup.Info("group record", "path", "/api")

	// Close on the root flushes records written through derivatives.
	h.Close()

	got := out.String()
	if !strings.Contains(got, `"service"`) || !strings.Contains(got, `"plan"`) {
		t.Fatalf("WithAttrs attributes lost: %q", got)
	}
	if !strings.Contains(got, "request") {
		t.Fatalf("WithGroup nesting lost: %q", got)
	}
}

func TestAsyncHandlerConcurrentWriters(t *testing.T) {
	out := &lockedBuffer{}
	h, log := newAsyncForTest(out, AsyncConfig{
		Enabled:       true,
		BufferSize:    1024,
		FlushInterval: 10 * time.Millisecond,
	})

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				log.Info("concurrent", "goroutine", id, "i", i)
			}
		}(g)
	}
	wg.Wait()
	h.Close()

	if got := countLines(out.String()); got != 1000 {
		t.Fatalf("expected 1000 records from concurrent writers, got %d", got)
	}
}

func TestLoggerCloseFlushesAsyncOutput(t *testing.T) {
	out := &lockedBuffer{}
	log := New(Config{
		Level:  "info",
		Format: "json",
		Output: out,
		Async: AsyncConfig{
			Enabled:       true,
			BufferSize:    64,
			FlushInterval: time.Hour,
		},
	})

	log.Info("buffered")
	log.With("component", "test").Info("derived buffered")

	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := countLines(out.String()); got != 2 {
		t.Fatalf("expected 2 records after Logger.Close, got %d", got)
	}
}

func TestLoggerCloseWithoutAsync(t *testing.T) {
	log := NewNop()
	if err := log.Close(); err != nil {
		t.Fatalf("close on sync logger: %v", err)
	}
}

func BenchmarkAsyncHandler(b *testing.B) {
	h, log := newAsyncForTest(io.Discard, AsyncConfig{
		Enabled:       true,
		BufferSize:    10000,
		FlushInterval: 100 * time.Millisecond,
	})
	defer h.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Info("bench", "i", i)
	}
}

func BenchmarkSyncHandler(b *testing.B) {
	_, log := newAsyncForTest(io.Discard, AsyncConfig{Enabled: false})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Info("bench", "i", i)
	}
}
