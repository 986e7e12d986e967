package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	domsvc "SilverScan/internal/domain/service"
	applogger "SilverScan/pkg/logger"
)

// DefaultSymbol is served when the requested symbol is not recognized.
const DefaultSymbol = "^GSPC"

// symbolNames maps supported upstream symbols to display names.
var symbolNames = map[string]string{
	"^GSPC": "S&P 500 (SPX)",
	"^DJI":  "Dow Jones (DJI)",
	"^IXIC": "Nasdaq (IXIC)",
	"AAPL":  "Apple (AAPL)",
	"MSFT":  "Microsoft (MSFT)",
}

var (
	// ErrUnsupportedInterval marks a request for an interval outside the
	// supported set; handlers map it to 400.
	ErrUnsupportedInterval = errors.New("unsupported interval")
	// ErrUpstreamFetch marks a provider failure; handlers map it to 502.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
)

// ResolveSymbol maps a requested symbol onto the supported set, falling back
// to the default index, and returns its display name.
func ResolveSymbol(symbol string) (string, string) {
	if _, ok := symbolNames[symbol]; !ok {
		symbol = DefaultSymbol
	}
	name, ok := symbolNames[symbol]
	if !ok {
		name = symbol
	}
	return symbol, name
}

// MarketDataUseCase runs one full pass for the market-data endpoint: fetch a
// candle window, run the detectors over it, and shape alerts plus the trade
// suggestion into the chart frontend's response.
type MarketDataUseCase struct {
	fetcher  domrepo.MarketFetcher
	analyzer *Analyzer
	agent    domsvc.DecisionAgent
	alerts   *AlertGenerator
	zone     *time.Location
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

func NewMarketDataUseCase(fetcher domrepo.MarketFetcher, analyzer *Analyzer, agent domsvc.DecisionAgent, alerts *AlertGenerator, zone *time.Location, metrics domrepo.Metrics, log *applogger.Logger) (*MarketDataUseCase, error) {
	if fetcher == nil || analyzer == nil || agent == nil || alerts == nil {
		return nil, fmt.Errorf("fetcher, analyzer, agent and alert generator are required")
	}
	if zone == nil {
		zone = time.UTC
	}
	return &MarketDataUseCase{
		fetcher:  fetcher,
		analyzer: analyzer,
		agent:    agent,
		alerts:   alerts,
		zone:     zone,
		metrics:  metrics,
		log:      log,
	}, nil
}

func (uc *MarketDataUseCase) GetMarketData(ctx context.Context, req models.MarketDataRequest) (*models.MarketDataResponse, error) {
	iv := domrepo.Interval(req.Interval)
	if !domrepo.IsValidInterval(iv) {
		return nil, fmt.Errorf("%w %q, valid intervals: %s",
			ErrUnsupportedInterval, req.Interval, joinIntervals(domrepo.ValidIntervals()))
	}
	symbol, name := ResolveSymbol(req.Symbol)

	// full available window; the analyzer applies its own lookback
	candles, err := uc.fetcher.Fetch(ctx, symbol, iv, 0)
	if err != nil {
		if uc.log != nil {
			uc.log.Error("market data fetch failed",
				applogger.String("symbol", symbol),
				applogger.String("interval", string(iv)),
				applogger.Error(err),
			)
		}
		if uc.metrics != nil {
			uc.metrics.RecordError("fetch")
		}
		return nil, fmt.Errorf("%w for %s (%s): %v", ErrUpstreamFetch, symbol, iv, err)
	}

	signals, err := uc.analyzer.Analyze(ctx, symbol, candles)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	suggestion := uc.agent.Decide(signals)
	if uc.metrics != nil {
		uc.metrics.RecordSuggestion(string(suggestion.Action))
	}
	alerts := uc.alerts.Generate(signals, suggestion)

	return &models.MarketDataResponse{
		Candles:    uc.formatCandles(candles),
		Alerts:     alerts,
		Suggestion: suggestion,
		Symbol:     symbol,
		SymbolName: name,
	}, nil
}

func (uc *MarketDataUseCase) formatCandles(candles []models.Candle) []models.CandleJSON {
	out := make([]models.CandleJSON, 0, len(candles))
	for _, c := range candles {
		out = append(out, models.CandleJSON{
			Time:   c.Time.In(uc.zone).Format(alertStampLayout),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Vol(),
		})
	}
	return out
}

func joinIntervals(ivs []domrepo.Interval) string {
	ss := make([]string, len(ivs))
	for i, iv := range ivs {
		ss[i] = string(iv)
	}
	return strings.Join(ss, ", ")
}
