package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCandle reports a bar that violates the OHLC ordering invariant.
var ErrInvalidCandle = errors.New("invalid candle")

// Candle is one immutable OHLCV bar. Volume is nil for feeds that do not
// report it (index symbols); zero-volume bars from providers are normalized
// to nil by the fetch layer.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume *float64
}

// Bullish reports whether the bar closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the bar closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Vol returns the bar volume, or 0 when the feed reports none.
func (c Candle) Vol() float64 {
	if c.Volume == nil {
		return 0
	}
	return *c.Volume
}

// Validate checks low <= min(open, close) and high >= max(open, close).
func (c Candle) Validate() error {
	if c.Low > min(c.Open, c.Close) || c.High < max(c.Open, c.Close) {
		return fmt.Errorf("%w: o=%g h=%g l=%g c=%g at %s",
			ErrInvalidCandle, c.Open, c.High, c.Low, c.Close, c.Time.Format(time.RFC3339))
	}
	return nil
}

// ValidateSeries checks every bar and the non-decreasing time ordering.
// Producers run this before handing a window to the analysis core.
func ValidateSeries(candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
		if i > 0 && c.Time.Before(candles[i-1].Time) {
			return fmt.Errorf("%w: bar %d time %s precedes bar %d",
				ErrInvalidCandle, i, c.Time.Format(time.RFC3339), i-1)
		}
	}
	return nil
}

// Float64Ptr is a convenience for building optional volumes.
func Float64Ptr(v float64) *float64 { return &v }
