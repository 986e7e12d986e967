package repository

import (
	"context"

	"SilverScan/internal/domain/models"
)

// MarketStream is a live trade feed (websocket upstream).
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// MarketFetcher retrieves an ordered, session-filtered candle window from a
// remote provider. limit == 0 means all available bars for the interval.
type MarketFetcher interface {
	Fetch(ctx context.Context, symbol string, iv Interval, limit int) ([]models.Candle, error)
}

// Publisher fans detection output and closed bars out to the message bus.
type Publisher interface {
	PublishCandle(ctx context.Context, symbol string, iv Interval, c models.Candle) error
	PublishAlerts(ctx context.Context, symbol string, alerts []models.Alert) error
	PublishSuggestion(ctx context.Context, symbol string, s models.Suggestion) error
	Close() error
}

// CandleSink persists closed bars from the ingest pipeline.
type CandleSink interface {
	Init(ctx context.Context) error // ensure tables
	StoreBatch(ctx context.Context, symbol string, iv Interval, candles []models.Candle) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational counters for the analysis paths.
type Metrics interface {
	RecordSignals(symbol string, kind string, count int)
	RecordAnalysisDuration(symbol string, seconds float64)
	RecordSuggestion(action string)
	RecordFetch(source string, cacheHit bool)
	RecordAlertPublished(symbol string)
	RecordStreamTrade(symbol string)
	RecordError(kind string)
}
