package logger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

)

func newSamplingForTest(out *bytes.Buffer, cfg SamplingConfig) *slog.Logger {
	return slog.New(NewSamplingHandler(slog.NewJSONHandler(out, nil), cfg))
}

func TestSamplingDisabledPassesEverything(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{Enabled: false})

	for i := 0; i < 200; i++ {
		log.Info("repeated message")
	}

	if got := countLines(buf.String()); got != 200 {
		t.Fatalf("expected 200 records with sampling off, got %d", got)
	}
}

func TestSamplingThresholdCutsRepeats(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 10,
		Rate:      0.0,
		ErrorRate: 1.0,
	})

	for i := 0; i < 100; i++ {
		log.Info("repeated message")
	}

	if got := countLines(buf.String()); got != 10 {
		t.Fatalf("expected exactly the threshold of 10 records, got %d", got)
	}
}

func TestSamplingRateAfterThreshold(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 10,
		Rate:      0.5,
		ErrorRate: 1.0,
	})

	// 10 pass at threshold, then half of the remaining 100.
	for i := 0; i < 110; i++ {
		log.Info("repeated message")
	}

	got := countLines(buf.String())
	if got < 55 || got > 65 {
		t.Fatalf("expected roughly 60 records at 50%% sampling, got %d", got)
	}
}

func TestSamplingErrorRateCoversWarnAndError(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 5,
		Rate:      0.0,
		ErrorRate: 1.0,
	})

	for i := 0; i < 50; i++ {
		log.Info("noisy info")
	}
	for i := 0; i < 20; i++ {
		log.Warn("warn message")
	}
	for i := 0; i < 50; i++ {
		log.Error("error message")
	}

	// 5 info at threshold, all warns and errors kept.
	if got := countLines(buf.String()); got != 75 {
		t.Fatalf("expected 75 records (5 info + 20 warn + 50 error), got %d", got)
	}
}

func TestSamplingGroupsByMessage(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 5,
		Rate:      0.0,
		ErrorRate: 1.0,
	})

	for i := 0; i < 10; i++ {
		log.Info("message A")
	}
	for i := 0; i < 10; i++ {
		log.Info("message B")
	}

	if got := countLines(buf.String()); got != 10 {
		t.Fatalf("expected 5 per message group, got %d total", got)
	}
}

func TestSamplingCountersResetEachTick(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:   true,
		Tick:      50 * time.Millisecond,
		Threshold: 5,
		Rate:      0.0,
		ErrorRate: 1.0,
	})

	for i := 0; i < 10; i++ {
		log.Info("repeated message")
	}
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 10; i++ {
		log.Info("repeated message")
	}

	if got := countLines(buf.String()); got != 10 {
		t.Fatalf("expected 5 records per tick, got %d total", got)
	}
}

func TestSamplingNeverSamplePrefixes(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:             true,
		Tick:                time.Minute,
		Threshold:           5,
		Rate:                0.0,
		ErrorRate:           1.0,
		NeverSampleMessages: []string{"audit:", "security:"},
	})

	for i := 0; i < 20; i++ {
		log.Info("ordinary message")
	}
	for i := 0; i < 20; i++ {
		log.Info("audit: user login")
	}
	for i := 0; i < 20; i++ {
		log.Info("security: access denied")
	}

	if got := countLines(buf.String()); got != 45 {
		t.Fatalf("expected 45 records (5 ordinary + 40 exempt), got %d", got)
	}
}

func TestSamplingStopsTrackingAtGroupCap(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:        true,
		Tick:           time.Minute,
		Threshold:      1,
		Rate:           0.0,
		ErrorRate:      1.0,
		MaxCounterSize: 10,
	})

	// The first 10 unique messages get a counter each; the rest are past
	// the cap and logged without counting.
	for i := 0; i < 20; i++ {
		log.Info(fmt.Sprintf("unique message %d", i))
	}

	if got := countLines(buf.String()); got != 20 {
		t.Fatalf("expected all 20 records once the group cap is hit, got %d", got)
	}
}

func TestSamplingOnDroppedCallback(t *testing.T) {
	var buf bytes.Buffer
	var dropped atomic.Int64
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 5,
		Rate:      0.0,
		ErrorRate: 1.0,
		OnDropped: func(_ context.Context, _ slog.Record) { dropped.Add(1) },
	})

	for i := 0; i < 20; i++ {
		log.Info("repeated message")
	}

	if dropped.Load() != 15 {
		t.Fatalf("expected 15 drops reported, got %d", dropped.Load())
	}
}

func TestSamplingOnDroppedPanicIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 1,
		Rate:      0.0,
		ErrorRate: 1.0,
		OnDropped: func(_ context.Context, _ slog.Record) {
			panic("callback panic")
		},
	})

	for i := 0; i < 10; i++ {
		log.Info("repeated message")
	}

	if got := countLines(buf.String()); got != 1 {
		t.Fatalf("expected 1 record past the threshold, got %d", got)
	}
}

func TestSamplingConcurrentUse(t *testing.T) {
	out := &lockedBuffer{}
	log := slog.New(NewSamplingHandler(slog.NewJSONHandler(out, nil), SamplingConfig{
		Enabled:   true,
		Tick:      time.Minute,
		Threshold: 100,
		Rate:      0.1,
		ErrorRate: 1.0,
	}))

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				log.Info("concurrent message")
			}
		}()
	}
	wg.Wait()

	// 100 at threshold plus roughly 10% of the remaining 900.
	got := countLines(out.String())
	if got < 100 || got > 200 {
		t.Fatalf("unexpected record count under concurrency: %d", got)
	}
}

func TestSamplingZeroConfigGetsDefaults(t *testing.T) {
	h := NewSamplingHandler(slog.NewJSONHandler(&bytes.Buffer{}, nil), SamplingConfig{Enabled: true})

	sh := h.(*samplingHandler)
	if sh.config.Tick != DefaultSamplingTick {
		t.Errorf("Tick default: got %v", sh.config.Tick)
	}
	if sh.config.Threshold != DefaultSamplingThreshold {
		t.Errorf("Threshold default: got %d", sh.config.Threshold)
	}
	if sh.config.MaxCounterSize != DefaultSamplingMaxCounterSize {
		t.Errorf("MaxCounterSize default: got %d", sh.config.MaxCounterSize)
	}
}

func TestSamplingDroppedMetric(t *testing.T) {
	RegisterMetrics(nil)

	before := DroppedTotal("info")

	var buf bytes.Buffer
	log := newSamplingForTest(&buf, SamplingConfig{
		Enabled:       true,
		Tick:          time.Minute,
		Threshold:     1,
		Rate:          0.0,
		ErrorRate:     1.0,
		EnableMetrics: true,
	})

	for i := 0; i < 10; i++ {
		log.Info("repeated message for drop counting")
	}

	after := DroppedTotal("info")
	if after-before != 9 {
		t.Fatalf("expected 9 drops recorded, got %v", after-before)
	}
}

func TestDroppedLogsCounter(t *testing.T) {
	counter := NewDroppedLogsCounter()
	for i := 0; i < 10; i++ {
		counter.Increment(context.Background(), slog.Record{})
	}

	if counter.Total() != 10 {
		t.Fatalf("total: got %d", counter.Total())
	}
	if reset := counter.Reset(); reset != 10 {
		t.Fatalf("reset return: got %d", reset)
	}
	if counter.Total() != 0 {
		t.Fatalf("total after reset: got %d", counter.Total())
	}
}

func BenchmarkSamplingDisabled(b *testing.B) {
	log := newSamplingForTest(&bytes.Buffer{}, SamplingConfig{Enabled: false})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Info("bench message", "i", i)
	}
}

func BenchmarkSamplingEnabled(b *testing.B) {
	log := newSamplingForTest(&bytes.Buffer{}, SamplingConfig{
		Enabled:   true,
		Tick:      time.Second,
		Threshold: 100,
		Rate:      0.1,
		ErrorRate: 1.0,
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Info("bench message", "i", i)
	}
}
