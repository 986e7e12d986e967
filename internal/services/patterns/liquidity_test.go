package patterns

import (
	"context"
	"testing"

	"SilverScan/internal/domain/models"
)

func TestEqualHighsWithinTolerance(t *testing.T) {
	d, err := NewLiquidityDetector(1e-3)
	if err != nil {
		t.Fatalf("constructor: %v", err)
	}

	// Highs 100.00 and 100.0005 three bars apart, nothing above 100.0015,
	// lows well spread so the sell-side pass stays quiet.
	candles := series(
		models.Candle{Open: 99.5, High: 100.00, Low: 99.0, Close: 99.8},
		models.Candle{Open: 99.8, High: 99.8, Low: 98.5, Close: 99.0},
		models.Candle{Open: 99.0, High: 99.9, Low: 98.0, Close: 98.6},
		models.Candle{Open: 98.6, High: 99.7, Low: 97.5, Close: 98.0},
		models.Candle{Open: 98.0, High: 100.0005, Low: 97.0, Close: 99.5},
	)

	pools, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(pools) != 1 {
		t.Fatalf("expected 1 pool, got %d: %+v", len(pools), pools)
	}
	p := pools[0]
	if p.Side != models.PoolBuy {
		t.Errorf("expected buy side, got %s", p.Side)
	}
	if p.Price != 100.00 {
		t.Errorf("expected price 100.00, got %g", p.Price)
	}
	if !p.Times[0].Equal(candles[0].Time) || !p.Times[1].Equal(candles[4].Time) {
		t.Errorf("unexpected formation times %v", p.Times)
	}
}

func TestEqualHighsBreachBetween(t *testing.T) {
	d, _ := NewLiquidityDetector(1e-3)

	// Middle bar runs through the level: the pair is spent, not resting.
	candles := series(
		models.Candle{Open: 99.5, High: 100.0, Low: 99.0, Close: 99.8},
		models.Candle{Open: 99.8, High: 100.5, Low: 98.5, Close: 100.2},
		models.Candle{Open: 99.6, High: 100.0, Low: 98.0, Close: 99.0},
	)

	pools, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(pools) != 0 {
		t.Fatalf("expected no pools through a breach, got %+v", pools)
	}
}

func TestEqualHighsBreachBeforeFirstBar(t *testing.T) {
	d, _ := NewLiquidityDetector(1e-3)

	// A high printed before the pair already exceeds the level, so the pair
	// never represented untouched liquidity.
	candles := series(
		models.Candle{Open: 101.0, High: 101.5, Low: 100.5, Close: 101.2},
		models.Candle{Open: 99.5, High: 100.0, Low: 99.0, Close: 99.8},
		models.Candle{Open: 99.3, High: 99.8, Low: 98.5, Close: 99.0},
		models.Candle{Open: 99.0, High: 100.0, Low: 98.0, Close: 99.5},
	)

	pools, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(pools) != 0 {
		t.Fatalf("pair behind an earlier breach must not emit, got %+v", pools)
	}
}

func TestConsecutiveBarsNeverPair(t *testing.T) {
	d, _ := NewLiquidityDetector(1e-3)

	candles := series(
		models.Candle{Open: 99.5, High: 100.0, Low: 99.0, Close: 99.8},
		models.Candle{Open: 99.8, High: 100.0, Low: 98.5, Close: 99.2},
		models.Candle{Open: 98.9, High: 99.0, Low: 98.0, Close: 98.5},
	)

	pools, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(pools) != 0 {
		t.Fatalf("adjacent equal highs must not pair, got %+v", pools)
	}
}

func TestEqualLowsSellSide(t *testing.T) {
	d, _ := NewLiquidityDetector(1e-3)

	candles := series(
		models.Candle{Open: 50.5, High: 51.0, Low: 50.0, Close: 50.8},
		models.Candle{Open: 50.8, High: 51.5, Low: 50.4, Close: 51.2},
		models.Candle{Open: 51.2, High: 52.0, Low: 50.0005, Close: 51.8},
	)

	pools, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(pools) != 1 {
		t.Fatalf("expected 1 pool, got %d: %+v", len(pools), pools)
	}
	p := pools[0]
	if p.Side != models.PoolSell {
		t.Errorf("expected sell side, got %s", p.Side)
	}
	if p.Price != 50.0 {
		t.Errorf("expected price 50.0, got %g", p.Price)
	}
}

func TestOverlappingPairsNotDeduplicated(t *testing.T) {
	d, _ := NewLiquidityDetector(1e-3)

	// Level touched three times: pairs (0,2), (0,4) and (2,4), in that order.
	candles := series(
		models.Candle{Open: 99.5, High: 100.0, Low: 99.0, Close: 99.8},
		models.Candle{Open: 99.4, High: 99.5, Low: 98.5, Close: 99.0},
		models.Candle{Open: 99.0, High: 100.0, Low: 98.0, Close: 99.6},
		models.Candle{Open: 99.2, High: 99.4, Low: 97.5, Close: 98.5},
		models.Candle{Open: 98.5, High: 100.0, Low: 97.0, Close: 99.2},
	)

	pools, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var buy []models.LiquidityPool
	for _, p := range pools {
		if p.Side == models.PoolBuy {
			buy = append(buy, p)
		}
	}
	if len(buy) != 3 {
		t.Fatalf("expected 3 overlapping pairs, got %d: %+v", len(buy), buy)
	}
	wantTimes := [][2]int{{0, 2}, {0, 4}, {2, 4}}
	for k, w := range wantTimes {
		if !buy[k].Times[0].Equal(candles[w[0]].Time) || !buy[k].Times[1].Equal(candles[w[1]].Time) {
			t.Errorf("pair %d: expected bars %v, got times %v", k, w, buy[k].Times)
		}
	}
}

func TestBuySidePrecedesSellSide(t *testing.T) {
	d, _ := NewLiquidityDetector(1e-3)

	// One equal-highs pair and one equal-lows pair over the same bars.
	candles := series(
		models.Candle{Open: 95.0, High: 100.0, Low: 90.0, Close: 96.0},
		models.Candle{Open: 96.0, High: 99.0, Low: 90.5, Close: 95.0},
		models.Candle{Open: 95.0, High: 100.0, Low: 90.0, Close: 96.0},
	)

	pools, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("expected 2 pools, got %d: %+v", len(pools), pools)
	}
	if pools[0].Side != models.PoolBuy || pools[1].Side != models.PoolSell {
		t.Errorf("expected buy pass before sell pass, got %s then %s", pools[0].Side, pools[1].Side)
	}
}

func TestTwoBarsNeverPool(t *testing.T) {
	d, err := NewLiquidityDetector(1e-3)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	// equal highs, but a pair needs a bar strictly between
	candles := series(
		models.Candle{Open: 99.5, High: 100.0, Low: 99.0, Close: 99.8},
		models.Candle{Open: 99.8, High: 100.0, Low: 99.2, Close: 99.6},
	)
	pools, err := d.Detect(context.Background(), candles)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(pools) != 0 {
		t.Errorf("got %d pools from a 2-bar series, want 0", len(pools))
	}
}

func TestLiquidityDetectorRejectsNegativeTolerance(t *testing.T) {
	if _, err := NewLiquidityDetector(-1e-3); err == nil {
		t.Fatal("expected error for negative tolerance")
	}
}
