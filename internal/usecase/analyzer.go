package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	domsvc "SilverScan/internal/domain/service"
	applogger "SilverScan/pkg/logger"
)

// Analyzer runs the three pattern detectors over one immutable candle window
// and assembles their outputs into a single signal set. Detectors execute in
// parallel but the set is always ordered pools, gaps, blocks: the decision
// agent's "last signal" selection depends on that ordering, never on
// completion order.
type Analyzer struct {
	lookback int
	pools    domsvc.LiquidityDetector
	gaps     domsvc.GapDetector
	blocks   domsvc.BlockDetector
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

func NewAnalyzer(lookback int, pools domsvc.LiquidityDetector, gaps domsvc.GapDetector, blocks domsvc.BlockDetector, metrics domrepo.Metrics, log *applogger.Logger) (*Analyzer, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookback)
	}
	if pools == nil || gaps == nil || blocks == nil {
		return nil, fmt.Errorf("all three detectors are required")
	}
	return &Analyzer{
		lookback: lookback,
		pools:    pools,
		gaps:     gaps,
		blocks:   blocks,
		metrics:  metrics,
		log:      log,
	}, nil
}

// Lookback returns the analysis window length in bars.
func (a *Analyzer) Lookback() int { return a.lookback }

// Analyze validates the series, restricts it to the trailing lookback window
// and fans the detectors out. A failed detector contributes nothing and the
// others still report; malformed input fails the whole call before any
// detector runs. symbol only labels metrics and logs.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, candles []models.Candle) ([]models.Signal, error) {
	start := time.Now()
	if err := models.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	window := candles
	if len(window) > a.lookback {
		window = window[len(window)-a.lookback:]
	}

	type item struct {
		name    string
		signals []models.Signal
		err     error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		found, err := a.pools.Detect(ctx, window)
		out := make([]models.Signal, 0, len(found))
		for _, p := range found {
			out = append(out, models.PoolSignal(p))
		}
		ch <- item{"pools", out, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		found, err := a.gaps.Detect(ctx, window)
		out := make([]models.Signal, 0, len(found))
		for _, g := range found {
			out = append(out, models.GapSignal(g))
		}
		ch <- item{"gaps", out, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		found, err := a.blocks.Detect(ctx, window)
		out := make([]models.Signal, 0, len(found))
		for _, b := range found {
			out = append(out, models.BlockSignal(b))
		}
		ch <- item{"blocks", out, err}
	}()

	go func() { wg.Wait(); close(ch) }()

	byName := make(map[string][]models.Signal, 3)
	for it := range ch {
		if it.err != nil {
			if a.log != nil {
				a.log.Warn("detector failed",
					applogger.String("detector", it.name),
					applogger.String("symbol", symbol),
					applogger.Error(it.err),
				)
			}
			if a.metrics != nil {
				a.metrics.RecordError("detector_" + it.name)
			}
			continue
		}
		byName[it.name] = it.signals
	}

	signals := make([]models.Signal, 0,
		len(byName["pools"])+len(byName["gaps"])+len(byName["blocks"]))
	signals = append(signals, byName["pools"]...)
	signals = append(signals, byName["gaps"]...)
	signals = append(signals, byName["blocks"]...)

	if a.metrics != nil {
		a.metrics.RecordSignals(symbol, string(models.KindLiquidityPool), len(byName["pools"]))
		a.metrics.RecordSignals(symbol, string(models.KindFairValueGap), len(byName["gaps"]))
		a.metrics.RecordSignals(symbol, string(models.KindOrderBlock), len(byName["blocks"]))
		a.metrics.RecordAnalysisDuration(symbol, time.Since(start).Seconds())
	}
	return signals, nil
}
