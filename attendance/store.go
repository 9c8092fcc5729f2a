package attendance

import (
	"context"

	"github.com/dojang/attendance/calendar"
)

// =============================================================================
// COLLABORATOR INTERFACES - Persistence lives outside the engine
// =============================================================================

// Reader returns attendance snapshots. A snapshot is only as fresh as the
// call that produced it.
type Reader interface {
	// LoadByMember returns every row of one member, ordered by date.
	LoadByMember(ctx context.Context, member MemberID) ([]Row, error)

	// LoadByDates returns every row, for any member, on one of dates.
	LoadByDates(ctx context.Context, dates []calendar.Day) ([]Row, error)
}

// Writer mutates attendance rows.
type Writer interface {
	// UpsertPresent stores present rows keyed by (member, date). Repeating
	// the same call leaves the store unchanged.
	UpsertPresent(ctx context.Context, rows ...Row) error

	// DeletePresent removes the row for (member, date). Deleting a row that
	// does not exist is a no-op.
	DeletePresent(ctx context.Context, member MemberID, date calendar.Day) error
}

// Store is a full attendance collaborator.
type Store interface {
	Reader
	Writer
}

// MemberStore manages member records. Deleting a member removes its
// attendance rows too.
type MemberStore interface {
	ListMembers(ctx context.Context) ([]Member, error)
	GetMember(ctx context.Context, id MemberID) (Member, error)
	CreateMember(ctx context.Context, m Member) error
	DeleteMember(ctx context.Context, id MemberID) error
}
