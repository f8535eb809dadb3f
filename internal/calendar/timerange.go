package calendar

import (
	"fmt"
	"time"
)

// View is the calendar granularity currently displayed.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
)

// ParseView validates a view string from the wire.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewMonth, ViewWeek, ViewDay:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// DateRange is an inclusive [From, To] span of calendar dates. Both bounds are
// midnight values; the time component is never meaningful.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Days returns the number of calendar days the range covers, inclusive.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// Contains reports whether the date of t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := StartOfDay(t)
	return !d.Before(r.From) && !d.After(r.To)
}

// Keys returns the YYYY-MM-DD key of every date in the range, in order.
func (r DateRange) Keys() []string {
	keys := make([]string, 0, r.Days())
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		keys = append(keys, DateKey(d))
	}
	return keys
}

// ResolveRange computes the inclusive date range to fetch for an anchor date
// and view.
//
// Month resolves to the calendar-grid superset of the anchor's month: from the
// Sunday on or before the 1st through the Saturday on or after the last day,
// so partial weeks at the grid edges are fully fetched. Week is the 7 days
// starting on the Sunday on or before the anchor. Day is the anchor alone.
//
// The week always starts on Sunday. This governs fetch correctness, not
// display, so it must not vary by locale.
func ResolveRange(anchor time.Time, view View) DateRange {
	day := StartOfDay(anchor)

	switch view {
	case ViewWeek:
		from := StartOfWeek(day)
		return DateRange{From: from, To: from.AddDate(0, 0, 6)}
	case ViewMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		last := first.AddDate(0, 1, -1)
		return DateRange{From: StartOfWeek(first), To: endOfWeek(last)}
	default:
		return DateRange{From: day, To: day}
	}
}

// StartOfDay strips the time component of t.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the Sunday on or before t.
func StartOfWeek(t time.Time) time.Time {
	d := StartOfDay(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// endOfWeek returns the Saturday on or after t.
func endOfWeek(t time.Time) time.Time {
	d := StartOfDay(t)
	return d.AddDate(0, 0, int(time.Saturday-d.Weekday()))
}
