package cache

import (
	"context"
	"encoding/json"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	pkgcache "SilverScan/pkg/cache"
	"SilverScan/pkg/logger"
)

// KeyPrefix namespaces cached candle windows. The watcher clears this
// namespace on boot so a restart never replays stale windows.
const KeyPrefix = "candles"

// DefaultTTL matches how long an upstream candle window stays fresh.
const DefaultTTL = 5 * time.Minute

// CachedFetcher decorates a MarketFetcher with a shared response cache.
// Windows are cached whole, keyed by symbol, interval and lookback days;
// the limit is applied after the cache so every limit shares one entry.
type CachedFetcher struct {
	next    domrepo.MarketFetcher
	store   pkgcache.Service
	metrics domrepo.Metrics
	log     *logger.Logger
	ttl     time.Duration
}

type Option func(*CachedFetcher)

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(f *CachedFetcher) {
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

func NewCachedFetcher(next domrepo.MarketFetcher, store pkgcache.Service, metrics domrepo.Metrics, log *logger.Logger, opts ...Option) *CachedFetcher {
	f := &CachedFetcher{
		next:    next,
		store:   store,
		metrics: metrics,
		log:     log,
		ttl:     DefaultTTL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *CachedFetcher) Fetch(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	key := pkgcache.GenerateKeyWithParams(KeyPrefix, symbol, string(iv), iv.LookbackDays())

	if raw, err := f.store.Get(ctx, key); err == nil {
		var candles []models.Candle
		if jerr := json.Unmarshal([]byte(raw), &candles); jerr == nil {
			f.metrics.RecordFetch("yahoo", true)
			return tail(candles, limit), nil
		}
		// poisoned entry, evict and refetch
		f.log.Warn("evicting undecodable cache entry", logger.String("key", key))
		_ = f.store.Delete(ctx, key)
	}

	candles, err := f.next.Fetch(ctx, symbol, iv, 0)
	if err != nil {
		return nil, err
	}
	f.metrics.RecordFetch("yahoo", false)

	if b, jerr := json.Marshal(candles); jerr == nil {
		if serr := f.store.Set(ctx, key, string(b), f.ttl); serr != nil {
			f.log.Warn("cache write failed", logger.String("key", key), logger.Error(serr))
		}
	}
	return tail(candles, limit), nil
}

func tail(candles []models.Candle, limit int) []models.Candle {
	if limit > 0 && len(candles) > limit {
		return candles[len(candles)-limit:]
	}
	return candles
}

var _ domrepo.MarketFetcher = (*CachedFetcher)(nil)
