package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveRangeMonth(t *testing.T) {
	anchors := []time.Time{
		date(2024, time.March, 10),
		date(2024, time.February, 1),  // leap February
		date(2024, time.September, 1), // month starting on Sunday
		date(2024, time.August, 31),   // month ending on Saturday
		date(2023, time.December, 25),
		date(2025, time.June, 15),
	}

	for _, anchor := range anchors {
		r := ResolveRange(anchor, ViewMonth)

		assert.Equal(t, time.Sunday, r.From.Weekday(), "anchor %s", anchor)
		assert.Equal(t, time.Saturday, r.To.Weekday(), "anchor %s", anchor)

		first := date(anchor.Year(), anchor.Month(), 1)
		last := first.AddDate(0, 1, -1)
		assert.False(t, r.From.After(first), "grid must start on or before the 1st")
		assert.False(t, r.To.Before(last), "grid must end on or after the last day")
		assert.Zero(t, r.Days()%7, "month grid covers whole weeks")
	}
}

func TestResolveRangeMonthGridSuperset(t *testing.T) {
	// March 2024: the 1st is a Friday, the 31st a Sunday.
	r := ResolveRange(date(2024, time.March, 10), ViewMonth)
	assert.Equal(t, date(2024, time.February, 25), r.From)
	assert.Equal(t, date(2024, time.April, 6), r.To)
}

func TestResolveRangeWeek(t *testing.T) {
	cases := []struct {
		anchor time.Time
		from   time.Time
	}{
		{date(2024, time.March, 10), date(2024, time.March, 10)}, // Sunday anchor
		{date(2024, time.March, 13), date(2024, time.March, 10)}, // midweek
		{date(2024, time.March, 16), date(2024, time.March, 10)}, // Saturday anchor
		{date(2024, time.January, 1), date(2023, time.December, 31)},
	}

	for _, tc := range cases {
		r := ResolveRange(tc.anchor, ViewWeek)
		assert.Equal(t, tc.from, r.From, "anchor %s", tc.anchor)
		assert.Equal(t, tc.from.AddDate(0, 0, 6), r.To)
		assert.Equal(t, 7, r.Days())
		assert.Equal(t, time.Sunday, r.From.Weekday())
		assert.True(t, r.Contains(tc.anchor))
	}
}

func TestResolveRangeDay(t *testing.T) {
	anchor := time.Date(2024, time.March, 15, 14, 30, 12, 0, time.UTC)
	r := ResolveRange(anchor, ViewDay)
	assert.Equal(t, date(2024, time.March, 15), r.From)
	assert.Equal(t, r.From, r.To)
	assert.Equal(t, 1, r.Days())
}

func TestRangeKeys(t *testing.T) {
	r := DateRange{From: date(2024, time.February, 28), To: date(2024, time.March, 1)}
	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01"}, r.Keys())
}

func TestParseView(t *testing.T) {
	for _, s := range []string{"month", "week", "day"} {
		v, err := ParseView(s)
		require.NoError(t, err)
		assert.Equal(t, View(s), v)
	}

	_, err := ParseView("year")
	assert.Error(t, err)
}
