/*
errors.go - Error types for date parsing and conversion

PURPOSE:
  Invalid dates are an expected, frequent input condition (a half-typed date
  in a picker, a month 13). Conversion and parsing therefore return errors
  instead of panicking, and every such error matches ErrInvalidDate.

USAGE:
  day, err := calendar.ParseSecondaryDay(input)
  if errors.Is(err, calendar.ErrInvalidDate) {
      // reject or clear the input
  }
*/
package calendar

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned for malformed or out-of-range date input.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRange is returned when a range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end before start")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidDateError describes why a date was rejected.
type InvalidDateError struct {
	Input  string
	Reason string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

func (e *InvalidDateError) Unwrap() error {
	return ErrInvalidDate
}

// IsInvalidDate returns true if err is (or wraps) a date validation failure.
func IsInvalidDate(err error) bool {
	return errors.Is(err, ErrInvalidDate)
}
