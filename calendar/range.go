package calendar

// =============================================================================
// RANGE - Inclusive span of canonical days
// =============================================================================

// Range is the inclusive span [Start, End]. Ranges are always bounded: there
// is no open-ended form.
type Range struct {
	Start Day
	End   Day
}

// NewRange returns ErrInvalidRange when end is before start.
func NewRange(start, end Day) (Range, error) {
	if end.Before(start) {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: start, End: end}, nil
}

// Contains returns true if d is within [Start, End].
func (r Range) Contains(d Day) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Len returns the number of days in the range (0 for an inverted range).
func (r Range) Len() int {
	n := DaysBetween(r.Start, r.End) + 1
	if n < 0 {
		return 0
	}
	return n
}

// Days returns every day in the range in ascending order.
func (r Range) Days() []Day {
	days := make([]Day, 0, r.Len())
	for current := r.Start; current.BeforeOrEqual(r.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
