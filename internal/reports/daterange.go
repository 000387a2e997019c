// Package reports computes the spending series shown on the reports page.
package reports

import (
	"time"

	"receipts/internal/core"
)

// DefaultLookbackDays is the width of the window used when no start date is given.
const DefaultLookbackDays = 180

// DateRange is an inclusive window of calendar days.
type DateRange struct {
	Start core.Date
	End   core.Date

	// StartDefaulted and EndDefaulted report that the raw value was empty or malformed.
	StartDefaulted bool
	EndDefaulted   bool
}

// Contains reports whether d falls within the window, bounds included.
func (r DateRange) Contains(d core.Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

// Key identifies the window in cache keys.
func (r DateRange) Key() string {
	return r.Start.String() + ":" + r.End.String()
}

// ResolveDateRange turns optional YYYY-MM-DD strings into a window using
// the default lookback. See ResolveDateRangeWithLookback.
func ResolveDateRange(rawStart, rawEnd string, now time.Time) DateRange {
	return ResolveDateRangeWithLookback(rawStart, rawEnd, now, DefaultLookbackDays)
}

// ResolveDateRangeWithLookback resolves each bound independently: a missing or
// malformed start falls back to now minus lookbackDays, a missing or malformed
// end falls back to now. Failures are never reported; the flags record which
// fallback applied. A lookbackDays of zero or less means DefaultLookbackDays.
func ResolveDateRangeWithLookback(rawStart, rawEnd string, now time.Time, lookbackDays int) DateRange {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	var r DateRange
	if d, err := core.ParseDate(rawStart); err == nil {
		r.Start = d
	} else {
		r.Start = core.DateOf(now.AddDate(0, 0, -lookbackDays))
		r.StartDefaulted = true
	}
	if d, err := core.ParseDate(rawEnd); err == nil {
		r.End = d
	} else {
		r.End = core.DateOf(now)
		r.EndDefaulted = true
	}
	return r
}
