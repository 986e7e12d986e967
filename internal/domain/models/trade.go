package models

import "time"

// Trade is one tick from the upstream stream feed, the raw unit the candle
// pipeline aggregates into bars.
type Trade struct {
	Symbol string
	Price  float64
	Size   float64
	Time   time.Time
}
