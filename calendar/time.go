/*
Package calendar provides the dual-calendar date model of the attendance engine.

PURPOSE:
  Storage and range arithmetic happen on the canonical (Gregorian) calendar.
  Everything a person reads or types is in the secondary (solar-Hijri)
  calendar. This package owns both representations and the conversion
  between them, plus the week and month geometry built on top.

KEY CONCEPTS IN THIS FILE (time.go):
  - Day: a canonical calendar date with no time-of-day component
  - Comparison and day arithmetic on Day

INVARIANT:
  Every Day is midnight UTC. Two Days for the same date are == to each other,
  so Day is safe as a map key.

SEE ALSO:
  - jalali.go: secondary calendar conversion
  - week.go:   week windows
  - grid.go:   month grids for date pickers
*/
package calendar

import (
	"strings"
	"time"
)

// =============================================================================
// DAY - Canonical calendar date
// =============================================================================

// LayoutDay is the storage layout for canonical dates.
const LayoutDay = "2006-01-02"

// Day is a canonical (Gregorian) date.
type Day struct {
	t time.Time
}

// NewDay builds a Day. Out-of-range month/day values are normalized the way
// time.Date normalizes them.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf drops the time-of-day of t and keeps its calendar date in t's own location.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

// Today returns the current date in loc (time.Local when nil).
func Today(loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	return DayOf(time.Now().In(loc))
}

// ParseDay parses a canonical YYYY-MM-DD string. Dates whose secondary year
// falls outside MinSecondaryYear..MaxSecondaryYear are rejected, so every
// parsed Day formats to a secondary date that parses back.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(LayoutDay, strings.TrimSpace(s))
	if err != nil {
		return Day{}, &InvalidDateError{Input: s, Reason: "expected canonical YYYY-MM-DD"}
	}
	d := DayOf(t)
	if !InSupportedRange(d) {
		return Day{}, &InvalidDateError{Input: s, Reason: "year out of supported range"}
	}
	return d, nil
}

// Comparison
func (d Day) Before(other Day) bool        { return d.t.Before(other.t) }
func (d Day) After(other Day) bool         { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool         { return d.t.Equal(other.t) }
func (d Day) BeforeOrEqual(other Day) bool { return !d.After(other) }
func (d Day) AfterOrEqual(other Day) bool  { return !d.Before(other) }

// Arithmetic
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Day) Year() int             { return d.t.Year() }
func (d Day) Month() time.Month     { return d.t.Month() }
func (d Day) Day() int              { return d.t.Day() }
func (d Day) Weekday() time.Weekday { return d.t.Weekday() }
func (d Day) Time() time.Time       { return d.t }
func (d Day) IsZero() bool          { return d.t.IsZero() }

func (d Day) String() string { return d.t.Format(LayoutDay) }

// MarshalText encodes the Day as YYYY-MM-DD.
func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes a YYYY-MM-DD string.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DAY NUMBERS
// =============================================================================

// Julian day number of 1970-01-01.
const unixEpochJDN = 2440588

var unixEpoch = NewDay(1970, time.January, 1)

// jdn returns the Julian day number of d.
func (d Day) jdn() int {
	return int(d.t.Unix()/86400) + unixEpochJDN
}

func dayFromJDN(n int) Day {
	return unixEpoch.AddDays(n - unixEpochJDN)
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Day) int { return to.jdn() - from.jdn() }
