package patterns

import (
	"context"
	"fmt"
	"math"
	"time"

	"SilverScan/internal/domain/models"
	domsvc "SilverScan/internal/domain/service"
)

// LiquidityDetector finds resting liquidity: pairs of swing extremes printed
// within tolerance of each other with no intervening breach. Equal highs mark
// buy-side liquidity (stops above), equal lows sell-side (stops below).
// The scan is quadratic over the window on purpose; the breach invariant is
// not expressible in a single linear pass and the window is lookback-bounded.
type LiquidityDetector struct {
	tolerance float64
}

// NewLiquidityDetector rejects a negative tolerance up front.
func NewLiquidityDetector(tolerance float64) (*LiquidityDetector, error) {
	if tolerance < 0 {
		return nil, fmt.Errorf("liquidity detector: negative tolerance %g", tolerance)
	}
	return &LiquidityDetector{tolerance: tolerance}, nil
}

// Detect emits every qualifying pair: the equal-highs pass first, then the
// equal-lows pass, each ordered by first index then second index. A level
// touched by three bars yields overlapping pairs; each pair is its own
// liquidity narrative, so nothing is deduplicated.
func (d *LiquidityDetector) Detect(ctx context.Context, candles []models.Candle) ([]models.LiquidityPool, error) {
	pools := d.scan(candles, models.PoolBuy)
	pools = append(pools, d.scan(candles, models.PoolSell)...)
	return pools, nil
}

func (d *LiquidityDetector) scan(candles []models.Candle, side models.PoolSide) []models.LiquidityPool {
	n := len(candles)
	var out []models.LiquidityPool
	for i := 0; i < n-1; i++ {
		pi := round6(extreme(candles[i], side))
		for j := i + 2; j < n; j++ { // j >= i+2: consecutive bars never pair
			pj := round6(extreme(candles[j], side))
			if math.Abs(pi-pj) > d.tolerance {
				continue
			}
			if d.breached(candles, i, j, pi, pj, side) {
				continue
			}
			out = append(out, models.LiquidityPool{
				Side:  side,
				Price: pi,
				Times: [2]time.Time{candles[i].Time, candles[j].Time},
			})
		}
	}
	return out
}

// breached reports whether any bar before j, other than i itself, prints
// beyond the pair level by more than the tolerance. This is the composable
// validity predicate for a candidate pair: a level that was already run
// through is spent, not resting.
func (d *LiquidityDetector) breached(candles []models.Candle, i, j int, pi, pj float64, side models.PoolSide) bool {
	if side == models.PoolBuy {
		ceil := max(pi, pj) + d.tolerance
		for k := 0; k < j; k++ {
			if k != i && candles[k].High > ceil {
				return true
			}
		}
		return false
	}
	floor := min(pi, pj) - d.tolerance
	for k := 0; k < j; k++ {
		if k != i && candles[k].Low < floor {
			return true
		}
	}
	return false
}

func extreme(c models.Candle, side models.PoolSide) float64 {
	if side == models.PoolBuy {
		return c.High
	}
	return c.Low
}

// round6 normalizes levels to 6 decimals before tolerance comparison so float
// noise from upstream feeds cannot split an equal level.
func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

var _ domsvc.LiquidityDetector = (*LiquidityDetector)(nil)
