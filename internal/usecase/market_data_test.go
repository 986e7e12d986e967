package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
)

type stubFetcher struct {
	out      []models.Candle
	err      error
	gotSym   string
	gotIv    domrepo.Interval
	gotLimit int
}

func (f *stubFetcher) Fetch(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	f.gotSym, f.gotIv, f.gotLimit = symbol, iv, limit
	return f.out, f.err
}

type stubAgent struct {
	out models.Suggestion
}

func (a stubAgent) Decide(signals []models.Signal) models.Suggestion { return a.out }

func newMarketDataUC(t *testing.T, fetcher *stubFetcher, agent stubAgent, pools *stubPools, gaps *stubGaps, blocks *stubBlocks) *MarketDataUseCase {
	t.Helper()
	zone := newYorkZone(t)
	analyzer, err := NewAnalyzer(100, pools, gaps, blocks, nil, nil)
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}
	uc, err := NewMarketDataUseCase(fetcher, analyzer, agent, NewAlertGenerator(zone), zone, nil, nil)
	if err != nil {
		t.Fatalf("new usecase: %v", err)
	}
	return uc
}

func TestGetMarketDataAssemblesResponse(t *testing.T) {
	at := time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC)
	series := mkSeries(10)
	series[3].Volume = nil
	fetcher := &stubFetcher{out: series}
	pools := &stubPools{out: []models.LiquidityPool{
		{Side: models.PoolBuy, Price: 101.5, Times: [2]time.Time{at, at.Add(time.Minute)}},
	}}
	gaps := &stubGaps{out: []models.FairValueGap{
		{Side: models.Bearish, GapLow: 98, GapHigh: 99, Time: at},
	}}
	zone := models.PriceZone{98, 99}
	stop := 99.099
	agent := stubAgent{out: models.Suggestion{Action: models.ActionSell, EntryZone: &zone, StopLoss: &stop}}

	uc := newMarketDataUC(t, fetcher, agent, pools, gaps, &stubBlocks{})
	res, err := uc.GetMarketData(context.Background(), models.MarketDataRequest{Interval: "1m", Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("get market data: %v", err)
	}

	if res.Symbol != "AAPL" || res.SymbolName != "Apple (AAPL)" {
		t.Errorf("symbol resolution: %s / %s", res.Symbol, res.SymbolName)
	}
	if fetcher.gotSym != "AAPL" || fetcher.gotIv != domrepo.Interval1m || fetcher.gotLimit != 0 {
		t.Errorf("fetch called with %s %s limit=%d", fetcher.gotSym, fetcher.gotIv, fetcher.gotLimit)
	}
	if len(res.Candles) != 10 {
		t.Fatalf("got %d candles", len(res.Candles))
	}
	// series starts 14:30 UTC = 10:30 EDT
	if res.Candles[0].Time != "2025-03-10 10:30:00" {
		t.Errorf("candle time = %q", res.Candles[0].Time)
	}
	if res.Candles[3].Volume != 0 {
		t.Errorf("missing volume serialized as %g, want 0", res.Candles[3].Volume)
	}
	if len(res.Alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(res.Alerts))
	}
	if res.Alerts[1].StopLoss == nil || *res.Alerts[1].StopLoss != stop {
		t.Error("suggestion levels not wired onto the gap alert")
	}
	if res.Suggestion.Action != models.ActionSell {
		t.Errorf("suggestion action = %s", res.Suggestion.Action)
	}
}

func TestGetMarketDataRejectsUnknownInterval(t *testing.T) {
	uc := newMarketDataUC(t, &stubFetcher{}, stubAgent{}, &stubPools{}, &stubGaps{}, &stubBlocks{})
	_, err := uc.GetMarketData(context.Background(), models.MarketDataRequest{Interval: "7m", Symbol: "AAPL"})
	if !errors.Is(err, ErrUnsupportedInterval) {
		t.Fatalf("err = %v, want unsupported interval", err)
	}
	if !strings.Contains(err.Error(), "1m") || !strings.Contains(err.Error(), "1d") {
		t.Errorf("error does not list valid intervals: %v", err)
	}
}

func TestGetMarketDataUnknownSymbolFallsBack(t *testing.T) {
	fetcher := &stubFetcher{out: mkSeries(5)}
	uc := newMarketDataUC(t, fetcher, stubAgent{out: models.Suggestion{Action: models.ActionNone}}, &stubPools{}, &stubGaps{}, &stubBlocks{})
	res, err := uc.GetMarketData(context.Background(), models.MarketDataRequest{Interval: "5m", Symbol: "NOPE"})
	if err != nil {
		t.Fatalf("get market data: %v", err)
	}
	if fetcher.gotSym != DefaultSymbol {
		t.Errorf("fetched %s, want fallback %s", fetcher.gotSym, DefaultSymbol)
	}
	if res.Symbol != DefaultSymbol || res.SymbolName != "S&P 500 (SPX)" {
		t.Errorf("response symbol %s / %s", res.Symbol, res.SymbolName)
	}
}

func TestGetMarketDataFetchFailureIsUpstreamError(t *testing.T) {
	fetcher := &stubFetcher{err: fmt.Errorf("connect: connection refused")}
	uc := newMarketDataUC(t, fetcher, stubAgent{}, &stubPools{}, &stubGaps{}, &stubBlocks{})
	_, err := uc.GetMarketData(context.Background(), models.MarketDataRequest{Interval: "1m", Symbol: "MSFT"})
	if !errors.Is(err, ErrUpstreamFetch) {
		t.Fatalf("err = %v, want upstream fetch failure", err)
	}
}
