/*
Package report builds a member's historical attendance report.

PURPOSE:
  Compare one member's present rows with every practice day from the global
  anchor date to the member's most recent row.

STATES:
  Empty:   no rows                    -> {0, 0, 0, []}
  Ranged:  rows exist                 -> range [anchor, lastRowDate]
           occurrences in range       -> Total
           occurrence has a row       -> present entry, else absent entry
           Present = row count
           Absent  = max(0, Total - Present)
           Detail sorted newest first

  The upper bound is the last recorded date, not today: a member who stops
  coming does not keep accruing absences.

CONSISTENCY WARNINGS:
  Present counts raw rows. A row before the anchor or on a non-practice day
  is counted but has no detail entry; each such row is reported as a
  Warning instead of being reconciled away.
*/
package report

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dojang/attendance/attendance"
	"github.com/dojang/attendance/calendar"
	"github.com/dojang/attendance/schedule"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// Entry is one scheduled practice day in a report.
type Entry struct {
	Date    calendar.Day
	Display calendar.SecondaryDate
	Present bool
}

// WarningKind classifies a row the schedule can't account for.
type WarningKind string

const (
	WarningBeforeAnchor WarningKind = "before_anchor"
	WarningOffPattern   WarningKind = "off_pattern"
)

// Warning flags a row counted in Present without a matching detail entry.
type Warning struct {
	Kind WarningKind
	Date calendar.Day
}

// Report is derived and ephemeral; rebuild it whenever rows change.
type Report struct {
	Member  attendance.MemberID
	Present int
	Absent  int
	Total   int
	Detail  []Entry // newest first

	// Rate is present detail entries over Total, as a percentage (2 dp).
	Rate     decimal.Decimal
	Warnings []Warning
}

// Consistent reports whether every row matched a scheduled day.
func (r Report) Consistent() bool { return len(r.Warnings) == 0 }

// PresentEntries counts detail entries marked present.
func (r Report) PresentEntries() int {
	n := 0
	for _, e := range r.Detail {
		if e.Present {
			n++
		}
	}
	return n
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator computes reports against a fixed anchor and pattern. It holds no
// mutable state and is safe for concurrent use.
type Aggregator struct {
	anchor  calendar.Day
	pattern schedule.Pattern
}

// NewAggregator parses the anchor as a secondary date. A bad anchor is a
// configuration defect and fails with ErrInvalidAnchor; there is no default.
func NewAggregator(anchor string, pattern schedule.Pattern) (*Aggregator, error) {
	day, err := ParseAnchor(anchor)
	if err != nil {
		return nil, err
	}
	return &Aggregator{anchor: day, pattern: pattern}, nil
}

// ParseAnchor parses a secondary anchor date, failing with *AnchorError.
func ParseAnchor(anchor string) (calendar.Day, error) {
	day, err := calendar.ParseSecondaryDay(anchor)
	if err != nil {
		return calendar.Day{}, &AnchorError{Anchor: anchor, Err: err}
	}
	return day, nil
}

// Anchor returns the canonical anchor date.
func (a *Aggregator) Anchor() calendar.Day { return a.anchor }

func (a *Aggregator) Pattern() schedule.Pattern { return a.pattern }

// Build computes the report for member from a snapshot of its rows. Rows of
// other members are ignored.
func (a *Aggregator) Build(member attendance.MemberID, rows []attendance.Row) (Report, error) {
	rep := Report{Member: member, Detail: []Entry{}, Rate: decimal.Zero}

	presentDates := make(map[calendar.Day]bool, len(rows))
	var dates []calendar.Day
	for _, r := range rows {
		if r.MemberID != member || !r.Present || presentDates[r.Date] {
			continue
		}
		presentDates[r.Date] = true
		dates = append(dates, r.Date)
	}
	if len(dates) == 0 {
		return rep, nil
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	last := dates[len(dates)-1]

	var occurrences []calendar.Day
	if !last.Before(a.anchor) {
		var err error
		occurrences, err = a.pattern.OccurrencesInRange(a.anchor, last)
		if err != nil {
			return Report{}, err
		}
	}

	rep.Total = len(occurrences)
	rep.Present = len(dates)
	rep.Detail = make([]Entry, 0, len(occurrences))
	for _, d := range occurrences {
		rep.Detail = append(rep.Detail, Entry{
			Date:    d,
			Display: calendar.ToSecondary(d),
			Present: presentDates[d],
		})
	}

	rep.Absent = max(0, rep.Total-rep.Present)

	sort.SliceStable(rep.Detail, func(i, j int) bool {
		return rep.Detail[i].Date.After(rep.Detail[j].Date)
	})

	for _, d := range dates {
		switch {
		case d.Before(a.anchor):
			rep.Warnings = append(rep.Warnings, Warning{Kind: WarningBeforeAnchor, Date: d})
		case !a.pattern.Matches(d):
			rep.Warnings = append(rep.Warnings, Warning{Kind: WarningOffPattern, Date: d})
		}
	}

	rep.Rate = rate(rep.PresentEntries(), rep.Total)
	return rep, nil
}

// Fetch reads the member's rows through r and builds the report. Read
// failures come back as *attendance.SyncError.
func (a *Aggregator) Fetch(ctx context.Context, r attendance.Reader, member attendance.MemberID) (Report, error) {
	rows, err := r.LoadByMember(ctx, member)
	if err != nil {
		return Report{}, &attendance.SyncError{Op: "load", MemberID: member, Err: err}
	}
	return a.Build(member, rows)
}

func rate(present, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(present) * 100).DivRound(decimal.NewFromInt(int64(total)), 2)
}
