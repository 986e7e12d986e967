package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	domsvc "SilverScan/internal/domain/service"
	fetchcache "SilverScan/internal/service/cache"
	pkgcache "SilverScan/pkg/cache"
	applogger "SilverScan/pkg/logger"
)

// alertSeenPrefix namespaces dedupe marks in the shared cache.
const alertSeenPrefix = "alertseen"

// alertSeenTTL bounds how long one alert identity suppresses republishing.
// Identity is the narrative message, which embeds the formation timestamps,
// so an unchanged pattern keeps the same identity across polls.
const alertSeenTTL = 24 * time.Hour

// Watcher re-analyzes the configured symbols on a fixed cadence and pushes
// fresh alerts and actionable suggestions to the message bus. Dedupe marks
// live in the shared cache, so restarts and replicas suppress the same
// alerts.
type Watcher struct {
	fetcher   domrepo.MarketFetcher
	analyzer  *Analyzer
	agent     domsvc.DecisionAgent
	alerts    *AlertGenerator
	pub       domrepo.Publisher
	seen      pkgcache.Service
	metrics   domrepo.Metrics
	log       *applogger.Logger
	symbols   []string
	iv        domrepo.Interval
	pollEvery time.Duration

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
}

// NewWatcher creates a new Watcher instance.
func NewWatcher(
	fetcher domrepo.MarketFetcher,
	analyzer *Analyzer,
	agent domsvc.DecisionAgent,
	alerts *AlertGenerator,
	pub domrepo.Publisher,
	seen pkgcache.Service,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	symbols []string,
	iv domrepo.Interval,
	pollEvery time.Duration,
) (*Watcher, error) {
	if fetcher == nil || analyzer == nil || agent == nil || alerts == nil || pub == nil || seen == nil {
		return nil, fmt.Errorf("fetcher, analyzer, agent, alert generator, publisher and cache are required")
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("at least one watch symbol is required")
	}
	if !domrepo.IsValidInterval(iv) {
		return nil, fmt.Errorf("unsupported watch interval: %s", iv)
	}
	if pollEvery <= 0 {
		pollEvery = 30 * time.Second
	}
	return &Watcher{
		fetcher:   fetcher,
		analyzer:  analyzer,
		agent:     agent,
		alerts:    alerts,
		pub:       pub,
		seen:      seen,
		metrics:   metrics,
		log:       log,
		symbols:   symbols,
		iv:        iv,
		pollEvery: pollEvery,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start clears the fetch-cache namespace and launches the poll loop. The
// wipe keeps a restarted watcher from analyzing windows cached before the
// process went down.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	if err := w.seen.DeleteByPattern(ctx, pkgcache.BuildPattern(fetchcache.KeyPrefix)); err != nil {
		if w.log != nil {
			w.log.Warn("fetch cache wipe failed", applogger.Error(err))
		}
	}
	if w.log != nil {
		w.log.Info("watcher started",
			applogger.Int("symbols", len(w.symbols)),
			applogger.String("interval", string(w.iv)),
			applogger.String("poll_every", w.pollEvery.String()),
		)
	}

	go w.loop(ctx)
}

// Stop halts the poll loop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.mu.Unlock()
	close(w.stopCh)
}

func (w *Watcher) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	for _, symbol := range w.symbols {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}
		w.watchOnce(ctx, symbol)
	}
}

// watchOnce runs one analysis pass for one symbol. Failures are logged and
// counted; the loop carries on with the next symbol.
func (w *Watcher) watchOnce(ctx context.Context, symbol string) {
	start := time.Now()

	// only the lookback tail feeds detection, no response to shape here
	candles, err := w.fetcher.Fetch(ctx, symbol, w.iv, w.analyzer.Lookback())
	if err != nil {
		w.fail("watch_fetch", symbol, err)
		return
	}
	signals, err := w.analyzer.Analyze(ctx, symbol, candles)
	if err != nil {
		w.fail("watch_analyze", symbol, err)
		return
	}
	suggestion := w.agent.Decide(signals)
	alerts := w.alerts.Generate(signals, suggestion)

	var fresh []models.Alert
	for _, a := range alerts {
		if w.firstSeen(ctx, symbol, a) {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) > 0 {
		if err := w.pub.PublishAlerts(ctx, symbol, fresh); err != nil {
			w.fail("watch_publish", symbol, err)
		} else if w.metrics != nil {
			for range fresh {
				w.metrics.RecordAlertPublished(symbol)
			}
		}
	}
	if suggestion.Actionable() {
		if err := w.pub.PublishSuggestion(ctx, symbol, suggestion); err != nil {
			w.fail("watch_publish", symbol, err)
		}
	}

	if w.log != nil {
		w.log.Debug("watch pass",
			applogger.String("symbol", symbol),
			applogger.Int("signals", len(signals)),
			applogger.Int("fresh_alerts", len(fresh)),
			applogger.String("action", string(suggestion.Action)),
			applogger.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}
}

// firstSeen marks the alert identity in the shared cache and reports whether
// this process is the first to see it. A cache failure publishes rather than
// drops.
func (w *Watcher) firstSeen(ctx context.Context, symbol string, a models.Alert) bool {
	key := pkgcache.GenerateKeyWithParams(alertSeenPrefix, symbol, pkgcache.HashKey(a.Message))
	ok, err := w.seen.TryLock(ctx, key, alertSeenTTL)
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordError("watch_dedupe")
		}
		return true
	}
	return ok
}

func (w *Watcher) fail(kind, symbol string, err error) {
	if w.metrics != nil {
		w.metrics.RecordError(kind)
	}
	if w.log != nil {
		w.log.Warn("watch pass failed",
			applogger.String("kind", kind),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}
