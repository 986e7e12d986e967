package features

import (
	"time"

	"SilverScan/internal/domain/models"
)

// BarBuilder folds a stream of trades into one OHLCV bar. One builder holds
// exactly one bucket for one symbol; callers rotate builders when a trade
// crosses the bucket boundary.
type BarBuilder struct {
	symbol string
	bucket time.Time
	open   float64
	high   float64
	low    float64
	close  float64
	volume float64
	trades int
}

// NewBarBuilder opens a bar at the given bucket seeded with its first trade.
func NewBarBuilder(symbol string, bucket time.Time, first *models.Trade) *BarBuilder {
	return &BarBuilder{
		symbol: symbol,
		bucket: bucket,
		open:   first.Price,
		high:   first.Price,
		low:    first.Price,
		close:  first.Price,
		volume: first.Size,
		trades: 1,
	}
}

// Apply folds one more trade into the open bar.
func (b *BarBuilder) Apply(t *models.Trade) {
	if t.Price > b.high {
		b.high = t.Price
	}
	if t.Price < b.low {
		b.low = t.Price
	}
	b.close = t.Price
	b.volume += t.Size
	b.trades++
}

// Symbol returns the symbol this builder aggregates.
func (b *BarBuilder) Symbol() string { return b.symbol }

// Bucket returns the bar boundary this builder covers.
func (b *BarBuilder) Bucket() time.Time { return b.bucket }

// Trades returns the number of trades folded so far.
func (b *BarBuilder) Trades() int { return b.trades }

// Bar seals the builder into a candle stamped at the bucket open. Volume is
// left absent when no trade carried size, matching how volume-less feeds are
// parsed everywhere else.
func (b *BarBuilder) Bar() models.Candle {
	c := models.Candle{
		Time:  b.bucket,
		Open:  b.open,
		High:  b.high,
		Low:   b.low,
		Close: b.close,
	}
	if b.volume > 0 {
		c.Volume = models.Float64Ptr(b.volume)
	}
	return c
}
