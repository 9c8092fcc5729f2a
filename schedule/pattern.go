/*
Package schedule derives practice-day occurrences from a weekly pattern.

PURPOSE:
  A Pattern names the practice days as offsets from the week start. From it
  we enumerate occurrences for one week window (sheet view) or for any
  bounded range (historical reports). Occurrences are derived, never stored.

  Pattern{WeekStart: Saturday, Offsets: [1 3 5]}

    Sat  Sun  Mon  Tue  Wed  Thu  Fri
     0    1    2    3    4    5    6
          ^         ^         ^

INVARIANT:
  For any window w, OccurrencesInRange(w.Start, w.End()) equals
  OccurrencesInWeek(w). The range form tests the absolute weekday, so it
  agrees with the week form whatever day the range starts on.

SEE ALSO:
  - calendar/week.go: week windows
  - ics.go:           iCalendar feed of occurrences
*/
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/dojang/attendance/calendar"
)

var (
	// ErrInvalidPattern is returned for offsets outside 0-6 or an empty pattern.
	ErrInvalidPattern = errors.New("invalid practice pattern")
)

// DefaultOffsets are the practice days of the club: Sunday, Tuesday, Thursday
// in a Saturday-first week.
var DefaultOffsets = []int{1, 3, 5}

// Pattern is a weekly recurrence expressed as offsets from WeekStart.
type Pattern struct {
	WeekStart time.Weekday
	Offsets   []int
}

// NewPattern validates offsets and returns them sorted and de-duplicated.
func NewPattern(weekStart time.Weekday, offsets []int) (Pattern, error) {
	if weekStart < time.Sunday || weekStart > time.Saturday {
		return Pattern{}, fmt.Errorf("%w: week start %d", ErrInvalidPattern, weekStart)
	}
	if len(offsets) == 0 {
		return Pattern{}, fmt.Errorf("%w: no practice days", ErrInvalidPattern)
	}

	seen := make(map[int]bool, len(offsets))
	clean := make([]int, 0, len(offsets))
	for _, off := range offsets {
		if off < 0 || off > 6 {
			return Pattern{}, fmt.Errorf("%w: offset %d outside 0-6", ErrInvalidPattern, off)
		}
		if !seen[off] {
			seen[off] = true
			clean = append(clean, off)
		}
	}
	sort.Ints(clean)

	return Pattern{WeekStart: weekStart, Offsets: clean}, nil
}

// Default returns the Saturday-first {1,3,5} pattern.
func Default() Pattern {
	p, _ := NewPattern(calendar.DefaultWeekStart, DefaultOffsets)
	return p
}

// Weekdays returns the absolute weekdays of the pattern, in offset order.
func (p Pattern) Weekdays() []time.Weekday {
	out := make([]time.Weekday, len(p.Offsets))
	for i, off := range p.Offsets {
		out[i] = time.Weekday((int(p.WeekStart) + off) % 7)
	}
	return out
}

// Matches reports whether d falls on a practice weekday.
func (p Pattern) Matches(d calendar.Day) bool {
	idx := calendar.WeekdayIndex(d, p.WeekStart)
	for _, off := range p.Offsets {
		if off == idx {
			return true
		}
	}
	return false
}

// Window returns the week window containing d under this pattern's week start.
func (p Pattern) Window(d calendar.Day) calendar.Window {
	return calendar.WindowOf(d, p.WeekStart)
}

// =============================================================================
// ENUMERATION
// =============================================================================

// OccurrencesInWeek returns one date per offset, ascending.
func (p Pattern) OccurrencesInWeek(w calendar.Window) []calendar.Day {
	start := calendar.StartOfWeek(w.Start, p.WeekStart)
	out := make([]calendar.Day, len(p.Offsets))
	for i, off := range p.Offsets {
		out[i] = start.AddDays(off)
	}
	return out
}

// OccurrencesInRange returns every practice day in [start, end], ascending.
// Both bounds are required; an inverted range fails with calendar.ErrInvalidRange.
func (p Pattern) OccurrencesInRange(start, end calendar.Day) ([]calendar.Day, error) {
	if end.Before(start) {
		return nil, calendar.ErrInvalidRange
	}
	if len(p.Offsets) == 0 {
		return nil, nil
	}

	rule, err := p.rule(start, end)
	if err != nil {
		return nil, err
	}

	times := rule.All()
	out := make([]calendar.Day, len(times))
	for i, t := range times {
		out[i] = calendar.DayOf(t.UTC())
	}
	return out, nil
}

// Count returns the number of practice days in [start, end].
func (p Pattern) Count(start, end calendar.Day) (int, error) {
	days, err := p.OccurrencesInRange(start, end)
	return len(days), err
}

var rruleWeekdays = [7]rrule.Weekday{
	rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA,
}

// rule builds FREQ=WEEKLY;BYDAY=... bounded by [start, end].
func (p Pattern) rule(start, end calendar.Day) (*rrule.RRule, error) {
	byDay := make([]rrule.Weekday, 0, len(p.Offsets))
	for _, wd := range p.Weekdays() {
		byDay = append(byDay, rruleWeekdays[wd])
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  1,
		Wkst:      rruleWeekdays[p.WeekStart],
		Byweekday: byDay,
		Dtstart:   start.Time(),
		Until:     end.Time(),
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence: %w", err)
	}
	return rule, nil
}

// RRule renders the pattern as an RFC 5545 RRULE string starting at start.
func (p Pattern) RRule(start, end calendar.Day) (string, error) {
	rule, err := p.rule(start, end)
	if err != nil {
		return "", err
	}
	return rule.String(), nil
}
