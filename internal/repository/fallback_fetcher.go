package repository

import (
	"context"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	applogger "SilverScan/pkg/logger"
)

// StoreFallbackFetcher serves candle windows from ClickHouse when the chart
// provider fails. The warehouse holds bars the pipeline and the topic
// consumer ingested, so streamed symbols stay analyzable through provider
// outages. With nothing usable in the warehouse the provider error stands.
type StoreFallbackFetcher struct {
	primary domrepo.MarketFetcher
	store   domrepo.CandleSource
	metrics domrepo.Metrics
	log     *applogger.Logger
}

func NewStoreFallbackFetcher(primary domrepo.MarketFetcher, store domrepo.CandleSource, metrics domrepo.Metrics, log *applogger.Logger) *StoreFallbackFetcher {
	return &StoreFallbackFetcher{primary: primary, store: store, metrics: metrics, log: log}
}

func (f *StoreFallbackFetcher) Fetch(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	candles, err := f.primary.Fetch(ctx, symbol, iv, limit)
	if err == nil {
		return candles, nil
	}
	if f.metrics != nil {
		f.metrics.RecordError("fetch_primary")
	}
	if f.log != nil {
		f.log.Warn("provider fetch failed, reading warehouse",
			applogger.String("symbol", symbol),
			applogger.String("interval", string(iv)),
			applogger.Error(err),
		)
	}

	var stored []models.Candle
	var serr error
	if limit > 0 {
		stored, serr = f.store.GetLatestNCandles(ctx, symbol, iv, limit)
	} else {
		to := time.Now().UTC()
		from := to.AddDate(0, 0, -iv.LookbackDays())
		stored, serr = f.store.GetCandles(ctx, symbol, iv, from, to)
	}
	if serr != nil || len(stored) == 0 {
		// the provider error is the actionable one
		return nil, err
	}
	if f.metrics != nil {
		f.metrics.RecordFetch("clickhouse", false)
	}
	return stored, nil
}

var _ domrepo.MarketFetcher = (*StoreFallbackFetcher)(nil)
