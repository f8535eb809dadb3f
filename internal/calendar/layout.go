package calendar

import "time"

// Default visible-hour window and pixel densities for the week and day grids.
const (
	DefaultStartHour = 7
	DefaultEndHour   = 21

	WeekHourHeight = 60.0
	DayHourHeight  = 120.0

	DefaultMinHeight = 24.0
)

// Geometry converts item times into vertical pixel positions for a week/day
// grid with a fixed visible-hour window [StartHour, EndHour) and HourHeight
// pixels per hour.
//
// Overlapping items are not assigned side-by-side lanes; they are stacked by
// absolute position and may visually collide.
type Geometry struct {
	StartHour  int
	EndHour    int
	HourHeight float64
	// MinHeight is a display-legibility floor applied by DisplayHeight only.
	// It never feeds back into durations or any duration-based computation.
	MinHeight float64
}

// WeekGeometry returns the default week-grid geometry.
func WeekGeometry() Geometry {
	return Geometry{StartHour: DefaultStartHour, EndHour: DefaultEndHour, HourHeight: WeekHourHeight, MinHeight: DefaultMinHeight}
}

// DayGeometry returns the default day-grid geometry, denser than the week grid.
func DayGeometry() Geometry {
	return Geometry{StartHour: DefaultStartHour, EndHour: DefaultEndHour, HourHeight: DayHourHeight, MinHeight: DefaultMinHeight}
}

// Box is the vertical placement of an item: offset from the top of the grid
// and raw (unclamped) height, both in pixels.
type Box struct {
	Top    float64
	Height float64
}

// Position computes the box for an item. The second return value is false when
// the item cannot be drawn: unparseable times, or end at or before start
// (height <= 0). Such items are excluded from rendering rather than drawn with
// a degenerate box.
func (g Geometry) Position(it CalendarItem) (Box, bool) {
	start, ok := it.StartClock()
	if !ok {
		return Box{}, false
	}
	end, ok := it.EndClock()
	if !ok {
		return Box{}, false
	}

	startMin, _ := ClockMinutes(start)
	endMin, _ := ClockMinutes(end)

	height := (endMin - startMin) / 60 * g.HourHeight
	if height <= 0 {
		return Box{}, false
	}

	top := (startMin - float64(g.StartHour)*60) / 60 * g.HourHeight
	return Box{Top: top, Height: height}, true
}

// DisplayHeight applies the legibility floor to a computed box height.
func (g Geometry) DisplayHeight(b Box) float64 {
	if b.Height < g.MinHeight {
		return g.MinHeight
	}
	return b.Height
}

// NowOffset computes the vertical offset of the "now" indicator line, using
// the same mapping as Position with the current wall clock as a zero-duration
// instant. The indicator is only drawn (ok == true) when now falls within the
// visible hour window and the displayed range includes the current date.
func (g Geometry) NowOffset(now time.Time, r DateRange) (float64, bool) {
	if !r.Contains(now) {
		return 0, false
	}
	minutes := float64(now.Hour())*60 + float64(now.Minute()) + float64(now.Second())/60
	if minutes < float64(g.StartHour)*60 || minutes > float64(g.EndHour)*60 {
		return 0, false
	}
	return (minutes - float64(g.StartHour)*60) / 60 * g.HourHeight, true
}
