package attendance

import (
	"context"
	"sort"

	"github.com/dojang/attendance/calendar"
)

// =============================================================================
// INDEX - Snapshot lookup of (member, date) -> present
// =============================================================================

type key struct {
	member MemberID
	date   calendar.Day
}

// Index answers presence questions over one snapshot of rows. It is not safe
// for concurrent use; each session builds its own.
type Index struct {
	scope   map[calendar.Day]bool // nil means every date is in scope
	present map[key]bool
}

// NewIndex builds an index over rows restricted to dates. Pass nil dates to
// keep every row. Rows outside the dates are ignored, so the occurrence list
// and the snapshot always describe the same range.
func NewIndex(dates []calendar.Day, rows []Row) *Index {
	ix := &Index{present: make(map[key]bool, len(rows))}
	if dates != nil {
		ix.scope = make(map[calendar.Day]bool, len(dates))
		for _, d := range dates {
			ix.scope[d] = true
		}
	}
	for _, r := range rows {
		if !r.Present || !ix.inScope(r.Date) {
			continue
		}
		ix.present[key{r.MemberID, r.Date}] = true
	}
	return ix
}

func (ix *Index) inScope(d calendar.Day) bool {
	return ix.scope == nil || ix.scope[d]
}

// IsPresent is total: unknown keys are absent.
func (ix *Index) IsPresent(member MemberID, date calendar.Day) bool {
	return ix.present[key{member, date}]
}

// Set forces the local state of one key. Dates outside the index's scope
// are left alone, matching what NewIndex keeps.
func (ix *Index) Set(member MemberID, date calendar.Day, present bool) {
	if !ix.inScope(date) {
		return
	}
	if present {
		ix.present[key{member, date}] = true
		return
	}
	delete(ix.present, key{member, date})
}

// Len is the number of present keys.
func (ix *Index) Len() int { return len(ix.present) }

// Rows returns the present keys as rows, ordered by date then member.
func (ix *Index) Rows() []Row {
	rows := make([]Row, 0, len(ix.present))
	for k := range ix.present {
		rows = append(rows, PresentRow(k.member, k.date))
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].MemberID < rows[j].MemberID
	})
	return rows
}

// Clone copies the index so a caller can keep the pre-toggle snapshot.
func (ix *Index) Clone() *Index {
	c := &Index{present: make(map[key]bool, len(ix.present))}
	if ix.scope != nil {
		c.scope = make(map[calendar.Day]bool, len(ix.scope))
		for d := range ix.scope {
			c.scope[d] = true
		}
	}
	for k := range ix.present {
		c.present[k] = true
	}
	return c
}

// WeeklySummary counts presence over occurrence dates. Absent is never
// negative since it is derived from the same list.
func (ix *Index) WeeklySummary(member MemberID, dates []calendar.Day) Summary {
	var s Summary
	for _, d := range dates {
		if ix.IsPresent(member, d) {
			s.Present++
		}
	}
	s.Absent = len(dates) - s.Present
	return s
}

// =============================================================================
// TOGGLE - Optimistic flip, then sync
// =============================================================================

// Effect is the external mutation a toggle calls for.
type Effect int

const (
	EffectUpsert Effect = iota + 1 // mark present: upsert a present row
	EffectDelete                   // mark absent: delete the row
)

func (e Effect) String() string {
	switch e {
	case EffectUpsert:
		return "upsert"
	case EffectDelete:
		return "delete"
	}
	return "none"
}

// Intent reports which mutation toggling (member, date) would issue.
func (ix *Index) Intent(member MemberID, date calendar.Day) Effect {
	if ix.IsPresent(member, date) {
		return EffectDelete
	}
	return EffectUpsert
}

// Flip applies the toggle locally and returns the mutation to issue. Calling
// it twice restores the original state. Outside the scope nothing changes and
// the zero Effect comes back.
func (ix *Index) Flip(member MemberID, date calendar.Day) Effect {
	if !ix.inScope(date) {
		return 0
	}
	effect := ix.Intent(member, date)
	ix.Set(member, date, effect == EffectUpsert)
	return effect
}

// Apply issues effect against w. Failures come back as *SyncError.
func Apply(ctx context.Context, w Writer, member MemberID, date calendar.Day, effect Effect) error {
	var err error
	switch effect {
	case EffectUpsert:
		err = w.UpsertPresent(ctx, PresentRow(member, date))
	case EffectDelete:
		err = w.DeletePresent(ctx, member, date)
	default:
		return nil
	}
	if err != nil {
		return &SyncError{Op: effect.String(), MemberID: member, Date: date, Err: err}
	}
	return nil
}

// ToggleResult reports what a toggle did. AppliedLocally is true once the
// index has been flipped; SyncErr is set when the store rejected the write,
// in which case the local flip no longer matches storage.
type ToggleResult struct {
	Member         MemberID
	Date           calendar.Day
	Effect         Effect
	Present        bool
	AppliedLocally bool
	SyncErr        error
}

// Synced reports whether the local flip reached the store.
func (r ToggleResult) Synced() bool { return r.AppliedLocally && r.SyncErr == nil }

// Toggle flips (member, date) in ix, then writes the change through w. It
// never retries. On failure the caller decides how to revert.
func Toggle(ctx context.Context, ix *Index, w Writer, member MemberID, date calendar.Day) ToggleResult {
	effect := ix.Flip(member, date)
	res := ToggleResult{
		Member:         member,
		Date:           date,
		Effect:         effect,
		Present:        ix.IsPresent(member, date),
		AppliedLocally: true,
	}
	res.SyncErr = Apply(ctx, w, member, date, effect)
	return res
}
