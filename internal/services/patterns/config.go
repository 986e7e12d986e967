package patterns

import "time"

// ClockWindow is a half-open [From, To) range of local clock hours.
// 10:30 is the clock hour 10.5.
type ClockWindow struct {
	From float64
	To   float64
}

// Contains reports whether clock hour h falls inside the window.
func (w ClockWindow) Contains(h float64) bool { return h >= w.From && h < w.To }

func (w ClockWindow) wellFormed() bool { return w.From >= 0 && w.To <= 24 && w.From < w.To }

// DefaultWindows returns the three silver-bullet session windows in exchange
// local time: the London open raid, the New York AM session and the PM session.
func DefaultWindows() []ClockWindow {
	return []ClockWindow{
		{From: 3, To: 4},
		{From: 10, To: 11},
		{From: 14, To: 15},
	}
}

// ClockFunc converts a timestamp into a local clock hour. The market calendar
// supplies one bound to the exchange zone; detectors never carry zone logic
// themselves.
type ClockFunc func(time.Time) float64
