package patterns

import (
	"context"
	"fmt"
	"time"

	"SilverScan/internal/domain/models"
	domsvc "SilverScan/internal/domain/service"
)

// GapDetector scans rolling three-bar triples for unfilled directional voids.
// A gap only counts when the whole triple pushes one way and the third bar's
// wick never reaches back to the first bar's: that leftover range is the fair
// value gap. Candidates outside the session windows are dropped silently.
type GapDetector struct {
	windows []ClockWindow
	clock   ClockFunc
}

// NewGapDetector validates the window set and the clock capability up front.
func NewGapDetector(windows []ClockWindow, clock ClockFunc) (*GapDetector, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("gap detector: no session windows configured")
	}
	for _, w := range windows {
		if !w.wellFormed() {
			return nil, fmt.Errorf("gap detector: malformed window [%g, %g)", w.From, w.To)
		}
	}
	if clock == nil {
		return nil, fmt.Errorf("gap detector: nil clock func")
	}
	return &GapDetector{windows: windows, clock: clock}, nil
}

// Detect emits gaps in scan order. Bounds always satisfy GapLow < GapHigh:
// a bullish triple gaps between the first high and the third low, a bearish
// one between the third high and the first low.
func (d *GapDetector) Detect(ctx context.Context, candles []models.Candle) ([]models.FairValueGap, error) {
	var gaps []models.FairValueGap
	for i := 0; i+2 < len(candles); i++ {
		c0, c1, c2 := candles[i], candles[i+1], candles[i+2]
		switch {
		case c0.Bullish() && c1.Bullish() && c2.Bullish() && c2.Low > c0.High:
			if d.inWindow(c2.Time) {
				gaps = append(gaps, models.FairValueGap{
					Side:    models.Bullish,
					GapLow:  c0.High,
					GapHigh: c2.Low,
					Time:    c2.Time,
				})
			}
		case c0.Bearish() && c1.Bearish() && c2.Bearish() && c2.High < c0.Low:
			if d.inWindow(c2.Time) {
				gaps = append(gaps, models.FairValueGap{
					Side:    models.Bearish,
					GapLow:  c2.High,
					GapHigh: c0.Low,
					Time:    c2.Time,
				})
			}
		}
	}
	return gaps, nil
}

func (d *GapDetector) inWindow(t time.Time) bool {
	h := d.clock(t)
	for _, w := range d.windows {
		if w.Contains(h) {
			return true
		}
	}
	return false
}

var _ domsvc.GapDetector = (*GapDetector)(nil)
