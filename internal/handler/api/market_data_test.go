package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	"SilverScan/internal/service/calendar"
	"SilverScan/internal/services/patterns"
	"SilverScan/internal/usecase"
	xlogger "SilverScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

type fakeFetcher struct {
	out []models.Candle
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	return f.out, f.err
}

func window(n int, start time.Time) []models.Candle {
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		base := 100.0 + float64(i)*0.1
		out = append(out, models.Candle{
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   base,
			High:   base + 0.5,
			Low:    base - 0.5,
			Close:  base + 0.2,
			Volume: models.Float64Ptr(1000),
		})
	}
	return out
}

func newTestHandler(t *testing.T, fetcher *fakeFetcher) *MarketDataHandler {
	t.Helper()

	cal, err := calendar.New("America/New_York")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	pools, err := patterns.NewLiquidityDetector(0.001)
	if err != nil {
		t.Fatalf("pool detector: %v", err)
	}
	gaps, err := patterns.NewGapDetector(patterns.DefaultWindows(), cal.ClockHour)
	if err != nil {
		t.Fatalf("gap detector: %v", err)
	}
	blocks, err := patterns.NewBlockDetector(0.5, 0)
	if err != nil {
		t.Fatalf("block detector: %v", err)
	}
	agent, err := patterns.NewAgent(0.001, 2)
	if err != nil {
		t.Fatalf("agent: %v", err)
	}

	analyzer, err := usecase.NewAnalyzer(100, pools, gaps, blocks, nil, nil)
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	zone := cal.Zone()
	uc, err := usecase.NewMarketDataUseCase(fetcher, analyzer, agent, usecase.NewAlertGenerator(zone), zone, nil, nil)
	if err != nil {
		t.Fatalf("usecase: %v", err)
	}

	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewMarketDataHandler(l, uc)
}

func serve(h *MarketDataHandler, target string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMarketDataOK(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	h := newTestHandler(t, &fakeFetcher{out: window(30, start)})

	rec := serve(h, "/api/market-data?interval=1m&symbol=UNKNOWN")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	var res models.MarketDataResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Symbol != "^GSPC" {
		t.Errorf("unknown symbols must fall back, got %q", res.Symbol)
	}
	if res.SymbolName != "S&P 500 (SPX)" {
		t.Errorf("symbol_name = %q", res.SymbolName)
	}
	if len(res.Candles) != 30 {
		t.Errorf("len(candles) = %d, want 30", len(res.Candles))
	}
	// 14:30 UTC renders as 10:30 in the exchange zone (EDT).
	if got := res.Candles[0].Time; !strings.Contains(got, "10:30:00") {
		t.Errorf("candle time %q not rendered in exchange zone", got)
	}
	if res.Suggestion.Action == "" {
		t.Error("suggestion must always carry an action")
	}
}

func TestMarketDataDefaultsApply(t *testing.T) {
	start := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	h := newTestHandler(t, &fakeFetcher{out: window(5, start)})

	rec := serve(h, "/api/market-data")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var res models.MarketDataResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Symbol != "^GSPC" {
		t.Errorf("default symbol = %q, want ^GSPC", res.Symbol)
	}
}

func TestMarketDataBadInterval(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{out: window(5, time.Now().UTC())})

	rec := serve(h, "/api/market-data?interval=7m")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var envelope struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Status != http.StatusBadRequest {
		t.Errorf("envelope status = %d, want 400", envelope.Status)
	}
	if !strings.Contains(rec.Body.String(), "1m") {
		t.Errorf("400 body should list valid intervals, got %s", rec.Body.String())
	}
}

func TestMarketDataUpstreamFailure(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{err: errors.New("connection refused")})

	rec := serve(h, "/api/market-data?interval=1m&symbol=AAPL")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502, body %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, &fakeFetcher{})

	rec := serve(h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("health body = %s", rec.Body.String())
	}
}
