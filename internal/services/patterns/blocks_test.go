package patterns

import (
	"context"
	"math"
	"testing"

	"SilverScan/internal/domain/models"
)

func TestBullishBlockDetected(t *testing.T) {
	d, err := NewBlockDetector(0.0002, 1000)
	if err != nil {
		t.Fatalf("constructor: %v", err)
	}

	// Bearish bar swallowed by three bullish bars.
	candles := series(
		models.Candle{Open: 100.0, High: 100.2, Low: 98.8, Close: 99.0, Volume: vol(5000)},
		models.Candle{Open: 99.0, High: 99.6, Low: 98.7, Close: 99.5},
		models.Candle{Open: 99.5, High: 100.3, Low: 99.4, Close: 100.2},
		models.Candle{Open: 100.2, High: 101.1, Low: 100.1, Close: 101.0},
	)

	blocks, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d: %+v", len(blocks), blocks)
	}
	b := blocks[0]
	if b.Side != models.Bullish {
		t.Errorf("expected bullish, got %s", b.Side)
	}
	if b.ZoneLow != 98.8 || b.ZoneHigh != 100.2 {
		t.Errorf("zone must span the source bar, got (%g, %g)", b.ZoneLow, b.ZoneHigh)
	}
	if !b.Time.Equal(candles[0].Time) {
		t.Errorf("block must anchor on the source bar, got %v", b.Time)
	}
	if math.Abs(b.BodySize-0.01) > 1e-12 {
		t.Errorf("expected body 0.01, got %g", b.BodySize)
	}
	if b.Vol() != 5000 {
		t.Errorf("expected volume 5000, got %g", b.Vol())
	}
}

func TestBearishBlockDetected(t *testing.T) {
	d, _ := NewBlockDetector(0.0002, 1000)

	candles := series(
		models.Candle{Open: 99.0, High: 100.1, Low: 98.8, Close: 100.0, Volume: vol(5000)},
		models.Candle{Open: 100.0, High: 100.2, Low: 99.3, Close: 99.4},
		models.Candle{Open: 99.4, High: 99.5, Low: 98.6, Close: 98.7},
		models.Candle{Open: 98.7, High: 98.8, Low: 97.9, Close: 98.0},
	)

	blocks, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d: %+v", len(blocks), blocks)
	}
	b := blocks[0]
	if b.Side != models.Bearish {
		t.Errorf("expected bearish, got %s", b.Side)
	}
	if b.ZoneLow != 98.8 || b.ZoneHigh != 100.1 {
		t.Errorf("zone must span the source bar, got (%g, %g)", b.ZoneLow, b.ZoneHigh)
	}
}

func TestThinBodyFiltered(t *testing.T) {
	d, _ := NewBlockDetector(0.0002, 1000)

	// Near-doji source bar under perfect displacement.
	candles := series(
		models.Candle{Open: 100.0, High: 100.1, Low: 99.9, Close: 99.999, Volume: vol(5000)},
		models.Candle{Open: 99.9, High: 100.6, Low: 99.8, Close: 100.5},
		models.Candle{Open: 100.5, High: 101.3, Low: 100.4, Close: 101.2},
		models.Candle{Open: 101.2, High: 102.1, Low: 101.1, Close: 102.0},
	)

	blocks, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("thin body must be filtered, got %+v", blocks)
	}
}

func TestThinVolumeFiltered(t *testing.T) {
	d, _ := NewBlockDetector(0.0002, 1000)

	bars := []models.Candle{
		{Open: 100.0, High: 100.2, Low: 98.8, Close: 99.0, Volume: vol(500)},
		{Open: 99.0, High: 99.6, Low: 98.7, Close: 99.5},
		{Open: 99.5, High: 100.3, Low: 99.4, Close: 100.2},
		{Open: 100.2, High: 101.1, Low: 100.1, Close: 101.0},
	}

	blocks, err := d.Detect(context.Background(), series(bars...))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("thin volume must be filtered, got %+v", blocks)
	}

	// The same bar with no volume at all passes: the filter only applies
	// when the feed reports volume.
	bars[0].Volume = nil
	blocks, err = d.Detect(context.Background(), series(bars...))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("volume-less bar must pass the filter, got %d", len(blocks))
	}
	if blocks[0].Vol() != 0 {
		t.Errorf("absent volume must read as 0, got %g", blocks[0].Vol())
	}
}

func TestBlocksRankedStrongestFirst(t *testing.T) {
	d, _ := NewBlockDetector(0.0002, 1000)

	// Three displacements with ranks 10, 50 and 12 in scan order.
	candles := series(
		models.Candle{Open: 100.0, High: 100.2, Low: 98.8, Close: 99.0, Volume: vol(1000)},
		models.Candle{Open: 99.0, High: 99.6, Low: 98.7, Close: 99.5},
		models.Candle{Open: 99.5, High: 100.3, Low: 99.4, Close: 100.2},
		models.Candle{Open: 100.2, High: 101.1, Low: 100.1, Close: 101.0},
		models.Candle{Open: 101.0, High: 101.2, Low: 99.8, Close: 99.99, Volume: vol(5000)},
		models.Candle{Open: 99.99, High: 100.6, Low: 99.7, Close: 100.5},
		models.Candle{Open: 100.5, High: 101.3, Low: 100.4, Close: 101.2},
		models.Candle{Open: 101.2, High: 102.1, Low: 101.1, Close: 102.0},
		models.Candle{Open: 102.0, High: 102.3, Low: 100.5, Close: 100.776, Volume: vol(1000)},
		models.Candle{Open: 100.776, High: 101.4, Low: 100.7, Close: 101.3},
		models.Candle{Open: 101.3, High: 102.2, Low: 101.2, Close: 102.1},
		models.Candle{Open: 102.1, High: 103.0, Low: 102.0, Close: 102.9},
	)

	blocks, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %+v", len(blocks), blocks)
	}
	want := []int{4, 8, 0}
	for i, idx := range want {
		if !blocks[i].Time.Equal(candles[idx].Time) {
			t.Errorf("rank position %d: expected source bar %d, got time %v", i, idx, blocks[i].Time)
		}
	}
}

func TestEqualRankKeepsScanOrder(t *testing.T) {
	d, _ := NewBlockDetector(0.0002, 1000)

	// Both source bars have body fraction 0.01 and volume 1000.
	candles := series(
		models.Candle{Open: 100.0, High: 100.4, Low: 98.9, Close: 99.0, Volume: vol(1000)},
		models.Candle{Open: 99.0, High: 99.7, Low: 98.8, Close: 99.6},
		models.Candle{Open: 99.6, High: 100.4, Low: 99.5, Close: 100.3},
		models.Candle{Open: 100.3, High: 101.2, Low: 100.2, Close: 101.1},
		models.Candle{Open: 200.0, High: 200.8, Low: 197.8, Close: 198.0, Volume: vol(1000)},
		models.Candle{Open: 198.0, High: 199.4, Low: 197.6, Close: 199.2},
		models.Candle{Open: 199.2, High: 200.8, Low: 199.0, Close: 200.6},
		models.Candle{Open: 200.6, High: 202.4, Low: 200.4, Close: 202.2},
	)

	blocks, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Rank() != blocks[1].Rank() {
		t.Fatalf("fixture broken: ranks differ, %g vs %g", blocks[0].Rank(), blocks[1].Rank())
	}
	if !blocks[0].Time.Equal(candles[0].Time) || !blocks[1].Time.Equal(candles[4].Time) {
		t.Errorf("equal ranks must keep scan order, got %v then %v", blocks[0].Time, blocks[1].Time)
	}
}

func TestBlockNeedsFullDisplacement(t *testing.T) {
	d, _ := NewBlockDetector(0.0002, 1000)

	// Two bullish bars then a bearish one: displacement broken.
	candles := series(
		models.Candle{Open: 100.0, High: 100.2, Low: 98.8, Close: 99.0, Volume: vol(5000)},
		models.Candle{Open: 99.0, High: 99.6, Low: 98.7, Close: 99.5},
		models.Candle{Open: 99.5, High: 100.3, Low: 99.4, Close: 100.2},
		models.Candle{Open: 100.2, High: 100.3, Low: 99.5, Close: 99.6},
	)

	blocks, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("broken displacement must not emit, got %+v", blocks)
	}
}

func TestShortSeriesNoBlocks(t *testing.T) {
	d, err := NewBlockDetector(0.0002, 1000)
	if err != nil {
		t.Fatalf("constructor: %v", err)
	}
	// a displacement window needs four bars
	candles := series(
		models.Candle{Open: 100.0, High: 100.2, Low: 98.8, Close: 99.0, Volume: vol(5000)},
		models.Candle{Open: 99.0, High: 99.6, Low: 98.7, Close: 99.5},
		models.Candle{Open: 99.5, High: 100.3, Low: 99.4, Close: 100.2},
	)
	blocks, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("got %d blocks from a 3-bar series, want 0", len(blocks))
	}
}

func TestBlockDetectorConstructorValidation(t *testing.T) {
	if _, err := NewBlockDetector(-0.1, 1000); err == nil {
		t.Error("expected error for negative body threshold")
	}
	if _, err := NewBlockDetector(0.0002, -1); err == nil {
		t.Error("expected error for negative volume threshold")
	}
}
