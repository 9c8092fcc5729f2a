/*
jalali.go - Secondary (solar-Hijri) calendar conversion

PURPOSE:
  Bidirectional, validating conversion between canonical Days and
  SecondaryDates. The secondary calendar is what users read and type;
  the canonical calendar is what gets stored.

ALGORITHM:
  Leap years follow the 33-year sub-cycles anchored at the "breaks" table
  (the arithmetic used by the jalaali reference implementations). Conversion
  goes through Julian day numbers:

    canonical Day  --jdn-->  day number  --d2j-->  SecondaryDate
    SecondaryDate  --j2d-->  day number  --jdn-->  canonical Day

  Months 1-6 have 31 days, 7-11 have 30, month 12 has 29 or 30 (leap).

LAWS:
  ToCanonical(ToSecondary(d)) == d            for every supported Day
  ToSecondary(ToCanonical(s)) == s            for every valid SecondaryDate

SUPPORTED RANGE:
  Secondary years MinSecondaryYear..MaxSecondaryYear. ToSecondary is total:
  outside that span it extrapolates the last cycle instead of failing.
  ParseDay rejects canonical input outside the span (see InSupportedRange).
*/
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinSecondaryYear = -61
	MaxSecondaryYear = 3177
)

// Years at which the 33-year leap pattern shifts.
var breaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181, 1210,
	1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// =============================================================================
// SECONDARY DATE
// =============================================================================

// SecondaryDate is a (year, month, day) triple in the solar-Hijri calendar.
type SecondaryDate struct {
	Year  int
	Month int
	Day   int
}

// LayoutSecondary documents the textual form: YYYY-MM-DD, zero padded.
const LayoutSecondary = "YYYY-MM-DD"

func (s SecondaryDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", s.Year, s.Month, s.Day)
}

// Valid reports whether s names a real secondary-calendar day.
func (s SecondaryDate) Valid() bool {
	return s.Validate() == nil
}

// Validate returns an *InvalidDateError naming the first failing field.
func (s SecondaryDate) Validate() error {
	switch {
	case s.Year < MinSecondaryYear || s.Year > MaxSecondaryYear:
		return &InvalidDateError{Input: s.String(), Reason: "year out of supported range"}
	case s.Month < 1 || s.Month > 12:
		return &InvalidDateError{Input: s.String(), Reason: "month must be 1-12"}
	case s.Day < 1 || s.Day > MonthLength(s.Year, s.Month):
		return &InvalidDateError{
			Input:  s.String(),
			Reason: fmt.Sprintf("day must be 1-%d", MonthLength(s.Year, s.Month)),
		}
	}
	return nil
}

// Before compares two secondary dates field by field.
func (s SecondaryDate) Before(other SecondaryDate) bool {
	if s.Year != other.Year {
		return s.Year < other.Year
	}
	if s.Month != other.Month {
		return s.Month < other.Month
	}
	return s.Day < other.Day
}

// AddDays moves s by n days through the canonical calendar.
func (s SecondaryDate) AddDays(n int) (SecondaryDate, error) {
	d, err := ToCanonical(s)
	if err != nil {
		return SecondaryDate{}, err
	}
	return ToSecondary(d.AddDays(n)), nil
}

// Next and Prev step one day. Invalid input is returned unchanged with the error.
func (s SecondaryDate) Next() (SecondaryDate, error) { return s.AddDays(1) }
func (s SecondaryDate) Prev() (SecondaryDate, error) { return s.AddDays(-1) }

// Weekday returns the weekday shared by both calendars for this date.
func (s SecondaryDate) Weekday() (time.Weekday, error) {
	d, err := ToCanonical(s)
	if err != nil {
		return 0, err
	}
	return d.Weekday(), nil
}

// =============================================================================
// PARSING
// =============================================================================

// ParseSecondary parses "YYYY-MM-DD" (separator '-' or '/'). Wrong field
// counts and non-integer parts fail with ErrInvalidDate; so does a date that
// does not exist in the secondary calendar.
func ParseSecondary(input string) (SecondaryDate, error) {
	trimmed := strings.TrimSpace(input)
	sign := 1
	if strings.HasPrefix(trimmed, "-") {
		// Years before 1 render as "-061-01-01".
		sign, trimmed = -1, trimmed[1:]
	}
	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) != 3 || strings.Count(trimmed, "-")+strings.Count(trimmed, "/") != 2 {
		return SecondaryDate{}, &InvalidDateError{Input: input, Reason: "expected " + LayoutSecondary}
	}

	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return SecondaryDate{}, &InvalidDateError{Input: input, Reason: "non-numeric field " + strconv.Quote(p)}
		}
		fields[i] = n
	}

	s := SecondaryDate{Year: sign * fields[0], Month: fields[1], Day: fields[2]}
	if err := s.Validate(); err != nil {
		return SecondaryDate{}, &InvalidDateError{Input: input, Reason: err.(*InvalidDateError).Reason}
	}
	return s, nil
}

// ParseSecondaryDay parses a secondary date string straight to a canonical Day.
func ParseSecondaryDay(input string) (Day, error) {
	s, err := ParseSecondary(input)
	if err != nil {
		return Day{}, err
	}
	return ToCanonical(s)
}

// FormatSecondary renders a canonical day as a secondary date string.
func FormatSecondary(d Day) string {
	return ToSecondary(d).String()
}

// =============================================================================
// CONVERSION
// =============================================================================

// ToSecondary converts a canonical day. It never fails.
func ToSecondary(d Day) SecondaryDate {
	return d2j(d.jdn())
}

// InSupportedRange reports whether d converts to a secondary year inside
// MinSecondaryYear..MaxSecondaryYear.
func InSupportedRange(d Day) bool {
	y := ToSecondary(d).Year
	return y >= MinSecondaryYear && y <= MaxSecondaryYear
}

// ToCanonical converts a secondary date, rejecting dates that do not exist.
func ToCanonical(s SecondaryDate) (Day, error) {
	if err := s.Validate(); err != nil {
		return Day{}, err
	}
	return dayFromJDN(j2d(s.Year, s.Month, s.Day)), nil
}

// IsLeapSecondaryYear reports whether year has a 30-day twelfth month.
func IsLeapSecondaryYear(year int) bool {
	return yearInfoFor(year).leap == 0
}

// MonthLength returns the number of days in a secondary month, or 0 when
// month is outside 1-12.
func MonthLength(year, month int) int {
	switch {
	case month < 1 || month > 12:
		return 0
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	case IsLeapSecondaryYear(year):
		return 30
	default:
		return 29
	}
}

// =============================================================================
// ARITHMETIC
// =============================================================================

type yearInfo struct {
	leap  int // years since the last leap year; 0 means this year is leap
	gy    int // canonical year in which the secondary year begins
	march int // day of March on which month 1 day 1 falls
}

// yearInfoFor locates year inside the breaks table.
func yearInfoFor(jy int) yearInfo {
	gy := jy + 621
	leapJ := -14
	jp := breaks[0]
	jump := 0

	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += jump/33*8 + (jump%33)/4
		jp = jm
	}

	n := jy - jp
	leapJ += n/33*8 + (n%33+3)/4
	if jump%33 == 4 && jump-n == 4 {
		leapJ++
	}

	leapG := gy/4 - (gy/100+1)*3/4 - 150
	march := 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + (jump+4)/33*33
	}
	leap := ((n+1)%33 - 1) % 4
	if leap == -1 {
		leap = 4
	}

	return yearInfo{leap: leap, gy: gy, march: march}
}

// j2d returns the Julian day number of a secondary date.
func j2d(jy, jm, jd int) int {
	info := yearInfoFor(jy)
	first := NewDay(info.gy, time.March, info.march).jdn()
	return first + (jm-1)*31 - jm/7*(jm-7) + jd - 1
}

// d2j converts a Julian day number to a secondary date.
func d2j(jdn int) SecondaryDate {
	gy := dayFromJDN(jdn).Year()
	jy := gy - 621
	info := yearInfoFor(jy)
	k := jdn - NewDay(gy, time.March, info.march).jdn()

	if k >= 0 {
		if k <= 185 {
			return SecondaryDate{Year: jy, Month: 1 + k/31, Day: k%31 + 1}
		}
		k -= 186
	} else {
		jy--
		k += 179
		if info.leap == 1 {
			k++
		}
	}
	return SecondaryDate{Year: jy, Month: 7 + k/30, Day: k%30 + 1}
}
