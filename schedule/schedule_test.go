package schedule_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojang/attendance/calendar"
	"github.com/dojang/attendance/schedule"
)

func TestNewPattern_Validation(t *testing.T) {
	p, err := schedule.NewPattern(time.Saturday, []int{5, 1, 3, 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, p.Offsets)

	_, err = schedule.NewPattern(time.Saturday, []int{7})
	assert.ErrorIs(t, err, schedule.ErrInvalidPattern)

	_, err = schedule.NewPattern(time.Saturday, nil)
	assert.ErrorIs(t, err, schedule.ErrInvalidPattern)
}

func TestDefaultPattern_Weekdays(t *testing.T) {
	p := schedule.Default()
	assert.Equal(t, []time.Weekday{time.Sunday, time.Tuesday, time.Thursday}, p.Weekdays())
	assert.True(t, p.Matches(calendar.NewDay(2025, time.October, 19)))
	assert.False(t, p.Matches(calendar.NewDay(2025, time.October, 18)))
}

func TestOccurrencesInWeek_ThreeAscendingDays(t *testing.T) {
	p := schedule.Default()
	start := calendar.NewDay(2025, time.January, 1)

	for i := 0; i < 20; i++ {
		w := p.Window(start.AddDays(i * 5))
		days := p.OccurrencesInWeek(w)

		require.Len(t, days, 3)
		assert.Equal(t, 2, calendar.DaysBetween(days[0], days[1]))
		assert.Equal(t, 2, calendar.DaysBetween(days[1], days[2]))
		assert.Equal(t, 1, calendar.DaysBetween(w.Start, days[0]))
		for _, d := range days {
			assert.True(t, w.Contains(d))
		}
	}
}

func TestOccurrencesInRange_EqualsWeekForWindowBounds(t *testing.T) {
	p := schedule.Default()
	w := p.Window(calendar.NewDay(2025, time.March, 21))

	for i := -10; i <= 10; i++ {
		shifted := w.Shift(i)
		days, err := p.OccurrencesInRange(shifted.Start, shifted.End())
		require.NoError(t, err)
		assert.Equal(t, p.OccurrencesInWeek(shifted), days)
	}
}

func TestOccurrencesInRange_FromAnchor(t *testing.T) {
	// GIVEN: anchor 1404-01-01 (Friday 2025-03-21)
	p := schedule.Default()
	anchor, err := calendar.ParseSecondaryDay("1404-01-01")
	require.NoError(t, err)

	// WHEN: enumerating through Thursday 2025-03-27
	days, err := p.OccurrencesInRange(anchor, calendar.NewDay(2025, time.March, 27))
	require.NoError(t, err)

	// THEN: Sunday, Tuesday, Thursday of that week
	assert.Equal(t, []calendar.Day{
		calendar.NewDay(2025, time.March, 23),
		calendar.NewDay(2025, time.March, 25),
		calendar.NewDay(2025, time.March, 27),
	}, days)
}

func TestOccurrencesInRange_LongRange(t *testing.T) {
	p := schedule.Default()
	start := calendar.NewDay(2024, time.January, 6) // Saturday
	end := start.AddDays(7*52 - 1)

	n, err := p.Count(start, end)
	require.NoError(t, err)
	assert.Equal(t, 3*52, n)
}

func TestOccurrencesInRange_SingleDayAndInverted(t *testing.T) {
	p := schedule.Default()
	sunday := calendar.NewDay(2025, time.October, 19)

	days, err := p.OccurrencesInRange(sunday, sunday)
	require.NoError(t, err)
	assert.Equal(t, []calendar.Day{sunday}, days)

	days, err = p.OccurrencesInRange(sunday.AddDays(-1), sunday.AddDays(-1))
	require.NoError(t, err)
	assert.Empty(t, days)

	_, err = p.OccurrencesInRange(sunday, sunday.AddDays(-1))
	assert.ErrorIs(t, err, calendar.ErrInvalidRange)
}

func TestAlternatePattern(t *testing.T) {
	// Monday-first week, practice on Monday and Wednesday.
	p, err := schedule.NewPattern(time.Monday, []int{0, 2})
	require.NoError(t, err)

	w := p.Window(calendar.NewDay(2025, time.October, 19))
	assert.Equal(t, []calendar.Day{
		calendar.NewDay(2025, time.October, 13),
		calendar.NewDay(2025, time.October, 15),
	}, p.OccurrencesInWeek(w))

	days, err := p.OccurrencesInRange(w.Start, w.End())
	require.NoError(t, err)
	assert.Equal(t, p.OccurrencesInWeek(w), days)
}

func TestWriteICS(t *testing.T) {
	p := schedule.Default()
	start := calendar.NewDay(2025, time.March, 22)
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := p.WriteICS(&buf, start, start.AddDays(6), schedule.DefaultFeed, now)
	require.NoError(t, err)

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
	assert.Contains(t, out, "2025-03-23@attendance.local")
	assert.Contains(t, out, "1404-01-03")
}

func TestWriteICS_SpanIsBounded(t *testing.T) {
	p := schedule.Default()
	start := calendar.NewDay(2025, time.March, 22)
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := p.WriteICS(&buf, start, start.AddDays(schedule.MaxFeedDays-1), schedule.DefaultFeed, now)
	require.NoError(t, err)

	buf.Reset()
	err = p.WriteICS(&buf, start, start.AddDays(schedule.MaxFeedDays), schedule.DefaultFeed, now)
	assert.ErrorIs(t, err, schedule.ErrFeedTooLong)
	assert.ErrorIs(t, err, calendar.ErrInvalidRange)
	assert.Zero(t, buf.Len())
}
