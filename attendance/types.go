/*
Package attendance reconciles present-only attendance rows against the
practice schedule.

PURPOSE:
  Rows record presence only. A scheduled practice day with no row for a
  member means that member was absent; there is no explicit absent row.
  So for any set of occurrences:

    present = rows matching those occurrences
    absent  = occurrences - present

KEY CONCEPTS:
  Row:    (member, canonical date, present=true)
  Index:  snapshot lookup (member, date) -> present, with local flips
  Sheet:  one week window of occurrences + its index, toggled optimistically
  Store:  the external collaborator that persists rows

SEE ALSO:
  - schedule: occurrence enumeration
  - report:   historical aggregation from the anchor date
*/
package attendance

import (
	"time"

	"github.com/dojang/attendance/calendar"
)

// MemberID identifies a member. Members are owned outside this package; the
// engine only uses their identifiers.
type MemberID string

// Row is one stored attendance fact. Present is always true in storage.
type Row struct {
	MemberID MemberID
	Date     calendar.Day
	Present  bool
}

// PresentRow builds the only kind of row that is ever persisted.
func PresentRow(member MemberID, date calendar.Day) Row {
	return Row{MemberID: member, Date: date, Present: true}
}

// Member is the minimal member record kept next to attendance rows.
type Member struct {
	ID        MemberID
	FirstName string
	LastName  string
	Belt      string

	// Contact details; the API validates their shape, the stores do not.
	NationalID string
	Mobile     string

	CreatedAt time.Time
}

func (m Member) FullName() string {
	switch {
	case m.FirstName == "":
		return m.LastName
	case m.LastName == "":
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// Summary is a present/absent tally over a set of occurrence dates.
type Summary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// Total is the number of occurrences the summary covers.
func (s Summary) Total() int { return s.Present + s.Absent }
