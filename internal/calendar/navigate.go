package calendar

import (
	"fmt"
	"time"
)

// Direction steps the anchor date backward or forward.
type Direction string

const (
	DirectionBack    Direction = "back"
	DirectionForward Direction = "forward"
)

// ParseDirection validates a direction string from the wire.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionBack, DirectionForward:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Step moves the anchor one unit for the given view: a calendar month, 7 days,
// or 1 day.
//
// Month stepping clamps instead of normalizing, so the result is always a real
// date in the adjacent month. An anchor on the last day of its month lands on
// the last day of the target month, which makes forward/back round-trip for
// month-end anchors such as Jan 31.
func Step(anchor time.Time, view View, dir Direction) time.Time {
	day := StartOfDay(anchor)

	delta := 1
	if dir == DirectionBack {
		delta = -1
	}

	switch view {
	case ViewMonth:
		return stepMonth(day, delta)
	case ViewWeek:
		return day.AddDate(0, 0, 7*delta)
	default:
		return day.AddDate(0, 0, delta)
	}
}

func stepMonth(day time.Time, delta int) time.Time {
	target := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, delta, 0)
	targetLen := daysInMonth(target)

	dom := day.Day()
	if dom >= daysInMonth(day) || dom > targetLen {
		dom = targetLen
	}
	return time.Date(target.Year(), target.Month(), dom, 0, 0, 0, 0, day.Location())
}

func daysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, -1).Day()
}

// GoToToday resets the anchor to the current date, regardless of view.
func GoToToday(now time.Time) time.Time {
	return StartOfDay(now)
}

// SelectDay applies the day-click contract: clicking a day in month view
// switches to day view anchored on that day; in week or day view only the
// anchor moves.
func SelectDay(view View, day time.Time) (View, time.Time) {
	if view == ViewMonth {
		return ViewDay, StartOfDay(day)
	}
	return view, StartOfDay(day)
}
