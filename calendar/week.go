package calendar

import "time"

// =============================================================================
// WEEK WINDOW
// =============================================================================

// DefaultWeekStart is the first day of the practice week.
const DefaultWeekStart = time.Saturday

// WeekdayIndex numbers weekdays relative to weekStart: 0 is weekStart itself,
// 6 the day before it. Both calendars share this numbering.
func WeekdayIndex(d Day, weekStart time.Weekday) int {
	return (int(d.Weekday()) - int(weekStart) + 7) % 7
}

// StartOfWeek returns the first day of the week containing d.
func StartOfWeek(d Day, weekStart time.Weekday) Day {
	return d.AddDays(-WeekdayIndex(d, weekStart))
}

// StartOfWeekAt drops the time of day of t before locating its week start.
func StartOfWeekAt(t time.Time, weekStart time.Weekday) Day {
	return StartOfWeek(DayOf(t), weekStart)
}

// Window is a 7-day span beginning on a week-start day. Windows are cheap
// values, recomputed on every navigation and never stored.
type Window struct {
	Start     Day
	WeekStart time.Weekday
}

// WindowOf returns the window containing d.
func WindowOf(d Day, weekStart time.Weekday) Window {
	return Window{Start: StartOfWeek(d, weekStart), WeekStart: weekStart}
}

// End is the last day of the window (Start + 6).
func (w Window) End() Day { return w.Start.AddDays(6) }

// Range returns the window as an inclusive Range.
func (w Window) Range() Range { return Range{Start: w.Start, End: w.End()} }

// Days returns the 7 days of the window in order.
func (w Window) Days() []Day { return w.Range().Days() }

func (w Window) Contains(d Day) bool { return w.Range().Contains(d) }

// Day returns the day at index i (0-6) of the window.
func (w Window) Day(i int) Day { return w.Start.AddDays(i) }

// Shift moves the window by n whole weeks; n may be negative.
func (w Window) Shift(n int) Window {
	return Window{Start: w.Start.AddDays(7 * n), WeekStart: w.WeekStart}
}

func (w Window) String() string { return w.Range().String() }
