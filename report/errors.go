package report

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAnchor is returned when the configured anchor date does not
	// parse as a secondary date. Treat it as fatal.
	ErrInvalidAnchor = errors.New("invalid anchor date")

	// ErrStale is returned for a report superseded by a newer selection.
	ErrStale = errors.New("report superseded by a newer selection")
)

// AnchorError carries the misconfigured anchor text.
type AnchorError struct {
	Anchor string
	Err    error
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("invalid anchor date %q: %v", e.Anchor, e.Err)
}

func (e *AnchorError) Unwrap() []error {
	return []error{ErrInvalidAnchor, e.Err}
}
