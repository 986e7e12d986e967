package repository

import "time"

// Interval identifies a bar aggregation period. Values mirror the upstream
// chart API's interval names.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval2m  Interval = "2m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval5d  Interval = "5d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
	Interval3mo Interval = "3mo"
)

// ValidIntervals returns the supported set in ascending duration order.
func ValidIntervals() []Interval {
	return []Interval{
		Interval1m, Interval2m, Interval5m, Interval15m, Interval1h,
		Interval1d, Interval5d, Interval1wk, Interval1mo, Interval3mo,
	}
}

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	for _, v := range ValidIntervals() {
		if iv == v {
			return true
		}
	}
	return false
}

// DefaultInterval returns the default interval.
func DefaultInterval() Interval { return Interval1m }

// NormalizeInterval converts a raw string to a valid interval (or default).
func NormalizeInterval(s string) Interval {
	if s == "" {
		return DefaultInterval()
	}
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return DefaultInterval()
}

// Intraday reports whether iv is shorter than one session.
func (iv Interval) Intraday() bool {
	switch iv {
	case Interval1m, Interval2m, Interval5m, Interval15m, Interval1h:
		return true
	default:
		return false
	}
}

// Duration returns the bar length for fixed-length intraday intervals, used
// by the ingest pipeline to bucket trades. Non-intraday intervals return 0.
func (iv Interval) Duration() time.Duration {
	switch iv {
	case Interval1m:
		return time.Minute
	case Interval2m:
		return 2 * time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	default:
		return 0
	}
}

// LookbackDays returns how many calendar days of history to request from the
// upstream provider for iv. Providers cap fine-grained history, so short
// intervals map to short ranges.
func (iv Interval) LookbackDays() int {
	switch iv {
	case Interval1m:
		return 7
	case Interval2m:
		return 14
	case Interval5m:
		return 30
	case Interval1d:
		return 200
	case Interval15m, Interval1h, Interval5d, Interval1wk, Interval1mo, Interval3mo:
		return 365
	default:
		return 60
	}
}
