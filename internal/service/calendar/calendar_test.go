package calendar

import (
	"testing"
	"time"

	"SilverScan/internal/domain/models"
)

func mustNew(t *testing.T) *Calendar {
	t.Helper()
	c, err := New(DefaultZone)
	if err != nil {
		t.Fatalf("load calendar: %v", err)
	}
	return c
}

func TestClockHour(t *testing.T) {
	c := mustNew(t)

	// 2025-03-10 is EDT (UTC-4): 14:30 UTC is 10:30 in New York.
	at := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	if h := c.ClockHour(at); h != 10.5 {
		t.Errorf("expected clock hour 10.5, got %g", h)
	}

	// 2025-01-10 is EST (UTC-5): 14:30 UTC is 09:30 in New York.
	at = time.Date(2025, 1, 10, 14, 30, 0, 0, time.UTC)
	if h := c.ClockHour(at); h != 9.5 {
		t.Errorf("expected clock hour 9.5, got %g", h)
	}
}

func TestIsMarketHours(t *testing.T) {
	c := mustNew(t)
	ny := c.Zone()

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", time.Date(2025, 3, 10, 9, 29, 0, 0, ny), false},
		{"at open", time.Date(2025, 3, 10, 9, 30, 0, 0, ny), true},
		{"midday", time.Date(2025, 3, 10, 12, 0, 0, 0, ny), true},
		{"at close", time.Date(2025, 3, 10, 16, 0, 0, 0, ny), true},
		{"after close", time.Date(2025, 3, 10, 16, 1, 0, 0, ny), false},
		{"overnight", time.Date(2025, 3, 10, 3, 0, 0, 0, ny), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.IsMarketHours(tc.at); got != tc.want {
				t.Errorf("IsMarketHours(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestLastTradingDayFromWeekend(t *testing.T) {
	c := mustNew(t)
	ny := c.Zone()

	// Sunday 2025-03-09 resolves to Friday 2025-03-07 at the close.
	sunday := time.Date(2025, 3, 9, 12, 0, 0, 0, ny)
	got, err := c.LastTradingDay(sunday)
	if err != nil {
		t.Fatalf("last trading day: %v", err)
	}
	want := time.Date(2025, 3, 7, 16, 0, 0, 0, ny)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	// A weekday resolves to itself.
	monday := time.Date(2025, 3, 10, 12, 0, 0, 0, ny)
	got, err = c.LastTradingDay(monday)
	if err != nil {
		t.Fatalf("last trading day: %v", err)
	}
	want = time.Date(2025, 3, 10, 16, 0, 0, 0, ny)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterSession(t *testing.T) {
	c := mustNew(t)
	ny := c.Zone()

	bar := func(at time.Time) models.Candle {
		return models.Candle{Time: at, Open: 100, High: 101, Low: 99, Close: 100.5}
	}
	candles := []models.Candle{
		bar(time.Date(2025, 3, 10, 9, 0, 0, 0, ny)),
		bar(time.Date(2025, 3, 10, 9, 30, 0, 0, ny)),
		bar(time.Date(2025, 3, 10, 15, 59, 0, 0, ny)),
		bar(time.Date(2025, 3, 10, 17, 0, 0, 0, ny)),
	}

	kept := c.FilterSession(candles)
	if len(kept) != 2 {
		t.Fatalf("expected 2 session bars, got %d", len(kept))
	}
	if !kept[0].Time.Equal(candles[1].Time) || !kept[1].Time.Equal(candles[2].Time) {
		t.Errorf("kept wrong bars: %v", kept)
	}
}

func TestTradingRangeIntradayCapped(t *testing.T) {
	c := mustNew(t)
	ny := c.Zone()

	// Saturday, 30 days requested: intraday caps at 7 and ends Friday close.
	end := time.Date(2025, 3, 8, 12, 0, 0, 0, ny)
	from, to, err := c.TradingRange(end, 30, true)
	if err != nil {
		t.Fatalf("trading range: %v", err)
	}
	wantTo := time.Date(2025, 3, 7, 16, 0, 0, 0, ny)
	if !to.Equal(wantTo) {
		t.Errorf("expected range end %v, got %v", wantTo, to)
	}
	if !from.Equal(wantTo.AddDate(0, 0, -7)) {
		t.Errorf("expected 7-day lookback, got %v", from)
	}
}

func TestTradingRangeDaily(t *testing.T) {
	c := mustNew(t)
	ny := c.Zone()

	end := time.Date(2025, 3, 10, 12, 0, 0, 0, ny)
	from, to, err := c.TradingRange(end, 200, false)
	if err != nil {
		t.Fatalf("trading range: %v", err)
	}
	if !to.Equal(time.Date(2025, 3, 10, 16, 0, 0, 0, ny)) {
		t.Errorf("daily range must end at the close, got %v", to)
	}
	if !from.Equal(to.AddDate(0, 0, -200)) {
		t.Errorf("expected 200-day lookback, got %v", from)
	}
}

func TestNewRejectsUnknownZone(t *testing.T) {
	if _, err := New("Nowhere/Atlantis"); err == nil {
		t.Error("expected error for unknown zone")
	}
}
