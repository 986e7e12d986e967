package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"SilverScan/internal/domain/models"
)

func mkSeries(n int) []models.Candle {
	base := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	for i := range out {
		p := 100 + float64(i)*0.1
		out[i] = models.Candle{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   p,
			High:   p + 0.5,
			Low:    p - 0.5,
			Close:  p + 0.2,
			Volume: models.Float64Ptr(1500),
		}
	}
	return out
}

type stubPools struct {
	delay    time.Duration
	out      []models.LiquidityPool
	err      error
	called   bool
	gotLen   int
	gotFirst time.Time
}

func (s *stubPools) Detect(ctx context.Context, candles []models.Candle) ([]models.LiquidityPool, error) {
	s.called = true
	s.gotLen = len(candles)
	if len(candles) > 0 {
		s.gotFirst = candles[0].Time
	}
	time.Sleep(s.delay)
	return s.out, s.err
}

type stubGaps struct {
	delay  time.Duration
	out    []models.FairValueGap
	err    error
	called bool
}

func (s *stubGaps) Detect(ctx context.Context, candles []models.Candle) ([]models.FairValueGap, error) {
	s.called = true
	time.Sleep(s.delay)
	return s.out, s.err
}

type stubBlocks struct {
	delay  time.Duration
	out    []models.OrderBlock
	err    error
	called bool
}

func (s *stubBlocks) Detect(ctx context.Context, candles []models.Candle) ([]models.OrderBlock, error) {
	s.called = true
	time.Sleep(s.delay)
	return s.out, s.err
}

func TestAnalyzeKeepsDetectorOrder(t *testing.T) {
	at := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	// slowest detector first in the output ordering
	pools := &stubPools{delay: 30 * time.Millisecond, out: []models.LiquidityPool{
		{Side: models.PoolBuy, Price: 101.5, Times: [2]time.Time{at, at.Add(time.Minute)}},
	}}
	gaps := &stubGaps{delay: 15 * time.Millisecond, out: []models.FairValueGap{
		{Side: models.Bearish, GapLow: 100, GapHigh: 101, Time: at},
	}}
	blocks := &stubBlocks{out: []models.OrderBlock{
		{Side: models.Bullish, ZoneLow: 99, ZoneHigh: 100, Time: at, BodySize: 0.01},
	}}

	a, err := NewAnalyzer(100, pools, gaps, blocks, nil, nil)
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	signals, err := a.Analyze(context.Background(), "AAPL", mkSeries(10))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(signals) != 3 {
		t.Fatalf("got %d signals, want 3", len(signals))
	}
	wantKinds := []models.SignalKind{models.KindLiquidityPool, models.KindFairValueGap, models.KindOrderBlock}
	for i, k := range wantKinds {
		if signals[i].Kind != k {
			t.Errorf("signal %d kind = %s, want %s", i, signals[i].Kind, k)
		}
	}
	if signals[0].Pool == nil || signals[0].Pool.Price != 101.5 {
		t.Error("pool payload lost in assembly")
	}
}

func TestAnalyzeDetectorFailureDegrades(t *testing.T) {
	at := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	pools := &stubPools{out: []models.LiquidityPool{{Side: models.PoolSell, Price: 99, Times: [2]time.Time{at, at}}}}
	gaps := &stubGaps{err: fmt.Errorf("window table corrupt")}
	blocks := &stubBlocks{out: []models.OrderBlock{{Side: models.Bearish, ZoneLow: 98, ZoneHigh: 99, Time: at, BodySize: 0.02}}}

	a, err := NewAnalyzer(100, pools, gaps, blocks, nil, nil)
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	signals, err := a.Analyze(context.Background(), "AAPL", mkSeries(10))
	if err != nil {
		t.Fatalf("one failed detector must not fail the run: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("got %d signals, want 2", len(signals))
	}
	if signals[0].Kind != models.KindLiquidityPool || signals[1].Kind != models.KindOrderBlock {
		t.Errorf("unexpected kinds %s, %s", signals[0].Kind, signals[1].Kind)
	}
}

func TestAnalyzeRejectsMalformedSeries(t *testing.T) {
	pools, gaps, blocks := &stubPools{}, &stubGaps{}, &stubBlocks{}
	a, err := NewAnalyzer(100, pools, gaps, blocks, nil, nil)
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}

	bad := mkSeries(5)
	bad[2].High = bad[2].Low - 1
	if _, err := a.Analyze(context.Background(), "AAPL", bad); err == nil {
		t.Fatal("inverted bar accepted")
	}
	if pools.called || gaps.called || blocks.called {
		t.Error("detectors ran on malformed input")
	}

	shuffled := mkSeries(5)
	shuffled[1], shuffled[3] = shuffled[3], shuffled[1]
	if _, err := a.Analyze(context.Background(), "AAPL", shuffled); err == nil {
		t.Fatal("out-of-order series accepted")
	}
}

func TestAnalyzeTrimsToLookbackTail(t *testing.T) {
	pools, gaps, blocks := &stubPools{}, &stubGaps{}, &stubBlocks{}
	a, err := NewAnalyzer(100, pools, gaps, blocks, nil, nil)
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	series := mkSeries(150)
	if _, err := a.Analyze(context.Background(), "AAPL", series); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if pools.gotLen != 100 {
		t.Fatalf("window length = %d, want 100", pools.gotLen)
	}
	if !pools.gotFirst.Equal(series[50].Time) {
		t.Errorf("window does not start at the trailing edge: %v", pools.gotFirst)
	}
}

func TestAnalyzeEmptySeries(t *testing.T) {
	pools, gaps, blocks := &stubPools{}, &stubGaps{}, &stubBlocks{}
	a, err := NewAnalyzer(100, pools, gaps, blocks, nil, nil)
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	signals, err := a.Analyze(context.Background(), "AAPL", nil)
	if err != nil {
		t.Fatalf("empty series must not error: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("got %d signals from an empty series, want 0", len(signals))
	}
}

// signalPrint flattens a signal set into a comparable fingerprint.
func signalPrint(signals []models.Signal) string {
	var b strings.Builder
	for _, s := range signals {
		switch s.Kind {
		case models.KindLiquidityPool:
			fmt.Fprintf(&b, "pool %s %g;", s.Pool.Side, s.Pool.Price)
		case models.KindFairValueGap:
			fmt.Fprintf(&b, "gap %s %g-%g;", s.Gap.Side, s.Gap.GapLow, s.Gap.GapHigh)
		case models.KindOrderBlock:
			fmt.Fprintf(&b, "block %s %g-%g;", s.Block.Side, s.Block.ZoneLow, s.Block.ZoneHigh)
		}
	}
	return b.String()
}

func TestAnalyzeRepeatedRunsIdentical(t *testing.T) {
	at := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	poolOut := []models.LiquidityPool{
		{Side: models.PoolBuy, Price: 101.5, Times: [2]time.Time{at, at.Add(time.Minute)}},
		{Side: models.PoolSell, Price: 99.25, Times: [2]time.Time{at, at.Add(2 * time.Minute)}},
	}
	gapOut := []models.FairValueGap{{Side: models.Bearish, GapLow: 100, GapHigh: 101, Time: at}}
	blockOut := []models.OrderBlock{{Side: models.Bullish, ZoneLow: 99, ZoneHigh: 100, Time: at, BodySize: 0.01}}

	series := mkSeries(10)
	delays := []time.Duration{0, 5 * time.Millisecond, 10 * time.Millisecond}
	var first string
	for run := 0; run < 6; run++ {
		// rotate which detector finishes last
		a, err := NewAnalyzer(100,
			&stubPools{delay: delays[run%3], out: poolOut},
			&stubGaps{delay: delays[(run+1)%3], out: gapOut},
			&stubBlocks{delay: delays[(run+2)%3], out: blockOut},
			nil, nil)
		if err != nil {
			t.Fatalf("new analyzer: %v", err)
		}
		signals, err := a.Analyze(context.Background(), "AAPL", series)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		got := signalPrint(signals)
		if run == 0 {
			first = got
			continue
		}
		if got != first {
			t.Fatalf("run %d diverged:\n got %s\nwant %s", run, got, first)
		}
	}
}

func TestNewAnalyzerValidation(t *testing.T) {
	pools, gaps, blocks := &stubPools{}, &stubGaps{}, &stubBlocks{}
	if _, err := NewAnalyzer(0, pools, gaps, blocks, nil, nil); err == nil {
		t.Error("zero lookback accepted")
	}
	if _, err := NewAnalyzer(100, nil, gaps, blocks, nil, nil); err == nil {
		t.Error("nil detector accepted")
	}
}
