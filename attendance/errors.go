package attendance

import (
	"errors"
	"fmt"

	"github.com/dojang/attendance/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSyncFailure marks a failed read or write against the store. The
	// caller should discard local state and retry from a fresh read.
	ErrSyncFailure = errors.New("attendance sync failed")

	// ErrMemberNotFound is returned when a referenced member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrDateNotInWindow is returned when toggling a date the sheet doesn't show.
	ErrDateNotInWindow = errors.New("date is not a practice day of the current week")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// SyncError wraps a collaborator failure with the operation that hit it.
type SyncError struct {
	Op       string // "upsert", "delete", "load"
	MemberID MemberID
	Date     calendar.Day
	Err      error
}

func (e *SyncError) Error() string {
	switch {
	case e.Date.IsZero() && e.MemberID == "":
		return fmt.Sprintf("attendance %s failed: %v", e.Op, e.Err)
	case e.Date.IsZero():
		return fmt.Sprintf("attendance %s failed for member %s: %v", e.Op, e.MemberID, e.Err)
	}
	return fmt.Sprintf("attendance %s failed for member %s on %s: %v", e.Op, e.MemberID, e.Date, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is.
func (e *SyncError) Unwrap() []error {
	return []error{ErrSyncFailure, e.Err}
}

// IsSyncFailure returns true if err is (or wraps) a store failure.
func IsSyncFailure(err error) bool {
	return errors.Is(err, ErrSyncFailure)
}

// IsNotFound returns true for missing members.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound)
}
