package calendar

import (
	"fmt"
	"time"

	"SilverScan/internal/domain/models"
)

// DefaultZone is the NYSE exchange zone.
const DefaultZone = "America/New_York"

// Calendar answers market-session questions for one exchange zone: whether a
// timestamp falls inside the regular session, which day last traded, and what
// the local clock hour of a timestamp is. The regular session is 09:30-16:00,
// both edges inclusive.
type Calendar struct {
	zone *time.Location
}

// New loads the named exchange zone, falling back to DefaultZone when empty.
func New(zoneName string) (*Calendar, error) {
	if zoneName == "" {
		zoneName = DefaultZone
	}
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("load market zone %s: %w", zoneName, err)
	}
	return &Calendar{zone: loc}, nil
}

// Zone returns the exchange location.
func (c *Calendar) Zone() *time.Location { return c.zone }

// ClockHour converts a timestamp to the exchange-local clock hour, minutes as
// fraction: 10:30 local is 10.5.
func (c *Calendar) ClockHour(t time.Time) float64 {
	lt := t.In(c.zone)
	return float64(lt.Hour()) + float64(lt.Minute())/60
}

// IsTradingDay reports whether t falls on a weekday in the exchange zone.
func (c *Calendar) IsTradingDay(t time.Time) bool {
	switch t.In(c.zone).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// IsMarketHours reports whether the local clock sits inside the regular
// session. This is a clock check only; combine with IsTradingDay for a full
// open-market answer.
func (c *Calendar) IsMarketHours(t time.Time) bool {
	lt := t.In(c.zone)
	h, m := lt.Hour(), lt.Minute()
	if h < 9 || h > 16 {
		return false
	}
	if h == 9 && m < 30 {
		return false
	}
	if h == 16 && m > 0 {
		return false
	}
	return true
}

// LastTradingDay scans back up to five days from t for a trading day and
// returns it pinned to the session close.
func (c *Calendar) LastTradingDay(t time.Time) (time.Time, error) {
	lt := t.In(c.zone)
	for i := 0; i < 5; i++ {
		day := lt.AddDate(0, 0, -i)
		if c.IsTradingDay(day) {
			return time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, c.zone), nil
		}
	}
	return time.Time{}, fmt.Errorf("no trading day within 5 days of %s", lt.Format("2006-01-02"))
}

// FilterSession keeps only candles stamped inside the regular session.
// Intended for intraday series; daily and coarser bars should pass through
// unfiltered by the caller.
func (c *Calendar) FilterSession(candles []models.Candle) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, cd := range candles {
		if c.IsMarketHours(cd.Time) {
			out = append(out, cd)
		}
	}
	return out
}

// TradingRange computes a (from, to) fetch range ending on a trading day.
// Intraday ranges are capped at 7 days and end at the current minute while
// the session is live, otherwise at the last session close.
func (c *Calendar) TradingRange(end time.Time, daysBack int, intraday bool) (time.Time, time.Time, error) {
	if end.IsZero() {
		end = time.Now().In(c.zone)
	}
	if intraday {
		if daysBack > 7 {
			daysBack = 7
		}
		if c.IsMarketHours(end) && c.IsTradingDay(end) {
			end = end.Truncate(time.Minute)
		} else {
			var err error
			end, err = c.LastTradingDay(end)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
		}
		return end.AddDate(0, 0, -daysBack), end, nil
	}
	end, err := c.LastTradingDay(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return end.AddDate(0, 0, -daysBack), end, nil
}
