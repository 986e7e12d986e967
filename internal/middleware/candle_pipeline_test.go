package middleware

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
)

type storeCall struct {
	symbol  string
	iv      domrepo.Interval
	candles []models.Candle
}

// chanSink signals every successful StoreBatch; failN first calls error out.
type chanSink struct {
	calls chan storeCall
	failN atomic.Int32
}

func newChanSink() *chanSink { return &chanSink{calls: make(chan storeCall, 16)} }

func (s *chanSink) Init(ctx context.Context) error { return nil }
func (s *chanSink) StoreBatch(ctx context.Context, symbol string, iv domrepo.Interval, candles []models.Candle) error {
	if s.failN.Add(-1) >= 0 {
		return fmt.Errorf("sink unavailable")
	}
	s.calls <- storeCall{symbol: symbol, iv: iv, candles: candles}
	return nil
}
func (s *chanSink) Health(ctx context.Context) error { return nil }
func (s *chanSink) Close() error                     { return nil }

type chanPublisher struct {
	candles chan models.Candle
}

func newChanPublisher() *chanPublisher { return &chanPublisher{candles: make(chan models.Candle, 16)} }

func (p *chanPublisher) PublishCandle(ctx context.Context, symbol string, iv domrepo.Interval, c models.Candle) error {
	p.candles <- c
	return nil
}
func (p *chanPublisher) PublishAlerts(ctx context.Context, symbol string, alerts []models.Alert) error {
	return nil
}
func (p *chanPublisher) PublishSuggestion(ctx context.Context, symbol string, s models.Suggestion) error {
	return nil
}
func (p *chanPublisher) Close() error { return nil }

type nopMetrics struct {
	errs atomic.Int32
}

func (m *nopMetrics) RecordSignals(symbol, kind string, count int)          {}
func (m *nopMetrics) RecordAnalysisDuration(symbol string, seconds float64) {}
func (m *nopMetrics) RecordSuggestion(action string)                        {}
func (m *nopMetrics) RecordFetch(source string, cacheHit bool)              {}
func (m *nopMetrics) RecordAlertPublished(symbol string)                    {}
func (m *nopMetrics) RecordStreamTrade(symbol string)                       {}
func (m *nopMetrics) RecordError(kind string)                               { m.errs.Add(1) }

// steppingClock advances one second per reading so the per-symbol throttle
// never engages in tests.
func steppingClock(base time.Time) func() time.Time {
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func trade(sym string, at time.Time, price, size float64) *models.Trade {
	return &models.Trade{Symbol: sym, Price: price, Size: size, Time: at}
}

func waitStore(t *testing.T, sink *chanSink) storeCall {
	t.Helper()
	select {
	case c := <-sink.calls:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for sink flush")
		return storeCall{}
	}
}

func TestProcessSealsBarOnBucketBoundary(t *testing.T) {
	sink := newChanSink()
	pub := newChanPublisher()
	base := time.Date(2025, 3, 10, 15, 1, 10, 0, time.UTC)
	p, err := NewCandlePipeline(domrepo.Interval1m, sink, pub, &nopMetrics{},
		WithNow(steppingClock(base)))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()

	open := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	if err := p.Process(ctx, trade("AAPL", open.Add(5*time.Second), 100, 10)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(ctx, trade("AAPL", open.Add(30*time.Second), 102, 5)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(ctx, trade("AAPL", open.Add(20*time.Second), 99.5, 2)); err != nil {
		t.Fatalf("process: %v", err)
	}
	// crossing into 15:01 seals the 15:00 bar
	if err := p.Process(ctx, trade("AAPL", open.Add(62*time.Second), 101, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}

	got := waitStore(t, sink)
	if got.symbol != "AAPL" || got.iv != domrepo.Interval1m {
		t.Fatalf("unexpected flush target %s %s", got.symbol, got.iv)
	}
	if len(got.candles) != 1 {
		t.Fatalf("expected one sealed bar, got %d", len(got.candles))
	}
	bar := got.candles[0]
	if !bar.Time.Equal(open) {
		t.Errorf("bar stamped %v, want %v", bar.Time, open)
	}
	if bar.Open != 100 || bar.High != 102 || bar.Low != 99.5 || bar.Close != 99.5 {
		t.Errorf("unexpected ohlc %g/%g/%g/%g", bar.Open, bar.High, bar.Low, bar.Close)
	}
	if bar.Vol() != 17 {
		t.Errorf("volume = %g, want 17", bar.Vol())
	}

	select {
	case pc := <-pub.candles:
		if !pc.Time.Equal(open) {
			t.Errorf("published bar stamped %v", pc.Time)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("bar never published")
	}
}

func TestLateTradeDropped(t *testing.T) {
	sink := newChanSink()
	base := time.Date(2025, 3, 10, 15, 1, 10, 0, time.UTC)
	p, err := NewCandlePipeline(domrepo.Interval1m, sink, nil, &nopMetrics{},
		WithNow(steppingClock(base)))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	ctx := context.Background()

	cur := time.Date(2025, 3, 10, 15, 1, 2, 0, time.UTC)
	if err := p.Process(ctx, trade("MSFT", cur, 50, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	// previous bucket, silently dropped
	if err := p.Process(ctx, trade("MSFT", cur.Add(-10*time.Second), 49, 1)); err != nil {
		t.Fatalf("late trade must not error: %v", err)
	}

	if err := p.FlushOpen(ctx); err != nil {
		t.Fatalf("flush open: %v", err)
	}
	got := waitStore(t, sink)
	bar := got.candles[0]
	if bar.Low != 50 || bar.Vol() != 1 {
		t.Errorf("late trade leaked into bar: low=%g vol=%g", bar.Low, bar.Vol())
	}
}

func TestProcessRejectsInvalidTrades(t *testing.T) {
	p, err := NewCandlePipeline(domrepo.Interval1m, newChanSink(), nil, &nopMetrics{},
		WithNow(steppingClock(time.Now())))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	ctx := context.Background()

	cases := []*models.Trade{
		nil,
		{Symbol: "", Price: 1, Size: 1, Time: time.Now()},
		{Symbol: "AAPL", Price: 1, Size: 1},
		{Symbol: "AAPL", Price: -1, Size: 1, Time: time.Now()},
		{Symbol: "AAPL", Price: 1, Size: -1, Time: time.Now()},
	}
	for i, tr := range cases {
		if err := p.Process(ctx, tr); err == nil {
			t.Errorf("case %d: invalid trade accepted", i)
		}
	}
}

func TestFlushOpenDrainsAllSymbols(t *testing.T) {
	sink := newChanSink()
	base := time.Date(2025, 3, 10, 15, 1, 10, 0, time.UTC)
	p, err := NewCandlePipeline(domrepo.Interval5m, sink, nil, &nopMetrics{},
		WithNow(steppingClock(base)))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	ctx := context.Background()

	at := time.Date(2025, 3, 10, 15, 1, 0, 0, time.UTC)
	if err := p.Process(ctx, trade("AAPL", at, 100, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(ctx, trade("MSFT", at, 200, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}

	if err := p.FlushOpen(ctx); err != nil {
		t.Fatalf("flush open: %v", err)
	}
	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		c := waitStore(t, sink)
		seen[c.symbol] = true
		if c.iv != domrepo.Interval5m {
			t.Errorf("flushed interval %s", c.iv)
		}
	}
	if !seen["AAPL"] || !seen["MSFT"] {
		t.Errorf("missing symbols in flush: %v", seen)
	}

	// second drain has nothing left
	if err := p.FlushOpen(ctx); err != nil {
		t.Fatalf("second flush open: %v", err)
	}
	select {
	case c := <-sink.calls:
		t.Fatalf("unexpected extra flush for %s", c.symbol)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFlushRetriesAfterSinkError(t *testing.T) {
	sink := newChanSink()
	sink.failN.Store(1)
	metrics := &nopMetrics{}
	base := time.Date(2025, 3, 10, 15, 1, 10, 0, time.UTC)
	p, err := NewCandlePipeline(domrepo.Interval1m, sink, nil, metrics,
		WithNow(steppingClock(base)))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()

	open := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	if err := p.Process(ctx, trade("AAPL", open.Add(time.Second), 10, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Process(ctx, trade("AAPL", open.Add(61*time.Second), 11, 1)); err != nil {
		t.Fatalf("process: %v", err)
	}

	got := waitStore(t, sink)
	if got.candles[0].Open != 10 {
		t.Errorf("retried bar open = %g, want 10", got.candles[0].Open)
	}
	if metrics.errs.Load() == 0 {
		t.Error("sink failure not recorded")
	}
}

func TestPipelineRejectsNonBucketableInterval(t *testing.T) {
	if _, err := NewCandlePipeline(domrepo.Interval1d, newChanSink(), nil, &nopMetrics{}); err == nil {
		t.Fatal("daily interval must not build a trade pipeline")
	}
}
