package util

import "time"

// Bucket returns the bar boundary containing t for the given bar width.
func Bucket(t time.Time, step time.Duration) time.Time {
	if step <= 0 {
		return t
	}
	return t.Truncate(step)
}

// AlignRange rounds a query range outward to bar boundaries so partial
// buckets at either edge are never silently truncated.
func AlignRange(from, to time.Time, step time.Duration) (time.Time, time.Time) {
	if step <= 0 {
		return from, to
	}
	from = from.Truncate(step)
	if r := to.Truncate(step); r.Before(to) {
		to = r.Add(step)
	}
	return from, to
}
