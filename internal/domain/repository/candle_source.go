package repository

import (
	"context"
	"time"

	"SilverScan/internal/domain/models"
)

// CandleSource provides ordered candle history for analysis windows. Both
// methods return bars in ascending time order.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string, iv Interval, from, to time.Time) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, iv Interval, n int) ([]models.Candle, error)
}
