package patterns

import (
	"time"

	"SilverScan/internal/domain/models"
)

// series stamps bars one minute apart starting at 10:00 UTC, which sits
// inside the default 10-11 window under hourClock.
func series(bars ...models.Candle) []models.Candle {
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(bars))
	for i, b := range bars {
		b.Time = base.Add(time.Duration(i) * time.Minute)
		out[i] = b
	}
	return out
}

// seriesAt is series with an explicit first-bar time.
func seriesAt(base time.Time, bars ...models.Candle) []models.Candle {
	out := make([]models.Candle, len(bars))
	for i, b := range bars {
		b.Time = base.Add(time.Duration(i) * time.Minute)
		out[i] = b
	}
	return out
}

// hourClock reads the clock hour straight off the UTC timestamp, standing in
// for the calendar-bound clock in detector tests.
func hourClock(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

func vol(v float64) *float64 { return models.Float64Ptr(v) }
