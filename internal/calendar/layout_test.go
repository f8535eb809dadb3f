package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition(t *testing.T) {
	g := Geometry{StartHour: 7, EndHour: 21, HourHeight: 60, MinHeight: 24}

	box, ok := g.Position(CalendarItem{
		Kind:        KindAppointment,
		Appointment: &Appointment{Date: "2024-03-10", StartTime: "09:00:00", EndTime: "09:30:00"},
	})
	require.True(t, ok)
	assert.InDelta(t, 120, box.Top, 1e-9)
	assert.InDelta(t, 30, box.Height, 1e-9)
}

func TestPositionDayDensity(t *testing.T) {
	g := DayGeometry()

	box, ok := g.Position(CalendarItem{
		Kind:        KindAppointment,
		Appointment: &Appointment{Date: "2024-03-10", StartTime: "08:00:00", EndTime: "10:00:00"},
	})
	require.True(t, ok)
	assert.InDelta(t, DayHourHeight, box.Top, 1e-9)
	assert.InDelta(t, 2*DayHourHeight, box.Height, 1e-9)
}

func TestPositionExcludesNonPositiveHeight(t *testing.T) {
	g := WeekGeometry()

	cases := []Appointment{
		{StartTime: "09:30:00", EndTime: "09:00:00"}, // end before start
		{StartTime: "09:00:00", EndTime: "09:00:00"}, // zero duration
		{StartTime: "garbage", EndTime: "10:00:00"},  // unparseable
	}

	for _, a := range cases {
		a := a
		_, ok := g.Position(CalendarItem{Kind: KindAppointment, Appointment: &a})
		assert.False(t, ok, "start=%s end=%s", a.StartTime, a.EndTime)
	}
}

func TestDisplayHeightFloorsWithoutTouchingDuration(t *testing.T) {
	g := Geometry{StartHour: 7, EndHour: 21, HourHeight: 60, MinHeight: 24}

	box, ok := g.Position(CalendarItem{
		Kind:        KindAppointment,
		Appointment: &Appointment{StartTime: "09:00:00", EndTime: "09:10:00"},
	})
	require.True(t, ok)

	// Raw height stays duration-based; only the rendered height is floored.
	assert.InDelta(t, 10, box.Height, 1e-9)
	assert.InDelta(t, 24, g.DisplayHeight(box), 1e-9)
}

func TestNowOffset(t *testing.T) {
	g := Geometry{StartHour: 7, EndHour: 21, HourHeight: 60}
	r := DateRange{From: date(2024, time.March, 10), To: date(2024, time.March, 16)}

	// 09:00 on a displayed day: same mapping as a zero-duration item.
	offset, ok := g.NowOffset(time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC), r)
	require.True(t, ok)
	assert.InDelta(t, 120, offset, 1e-9)

	// Outside the visible hour window.
	_, ok = g.NowOffset(time.Date(2024, time.March, 12, 6, 59, 0, 0, time.UTC), r)
	assert.False(t, ok)
	_, ok = g.NowOffset(time.Date(2024, time.March, 12, 21, 1, 0, 0, time.UTC), r)
	assert.False(t, ok)

	// Today is not in the displayed range.
	_, ok = g.NowOffset(time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC), r)
	assert.False(t, ok)
}
