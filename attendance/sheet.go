/*
sheet.go - Weekly attendance sheet

PURPOSE:
  The weekly view: one week window, its practice days, and a presence index
  built from a single read of those days. Navigation reloads both together
  so a snapshot is never paired with another week's dates.

TOGGLE FLOW:
  1. Flip the local index (the sheet shows the new state immediately)
  2. Write the change to the store
  3. On failure, throw the local index away and reload the week from the
     store. If that read fails too, undo the flip locally.

  The sheet never retries the write. The returned ToggleResult carries the
  sync error so the caller can tell the user.
*/
package attendance

import (
	"context"
	"sync"

	"github.com/dojang/attendance/calendar"
	"github.com/dojang/attendance/schedule"
)

type Sheet struct {
	mu      sync.Mutex
	store   Store
	pattern schedule.Pattern

	window calendar.Window
	dates  []calendar.Day
	index  *Index
}

// NewSheet returns an unloaded sheet. Call Load before reading it.
func NewSheet(store Store, pattern schedule.Pattern) *Sheet {
	return &Sheet{store: store, pattern: pattern, index: NewIndex(nil, nil)}
}

// Load shows the week containing d.
func (s *Sheet) Load(ctx context.Context, d calendar.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, s.pattern.Window(d))
}

// ShiftWeeks moves the sheet n weeks forward (negative n goes back).
func (s *Sheet) ShiftWeeks(ctx context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, s.window.Shift(n))
}

// Reload re-reads the current week.
func (s *Sheet) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, s.window)
}

func (s *Sheet) loadLocked(ctx context.Context, w calendar.Window) error {
	dates := s.pattern.OccurrencesInWeek(w)
	rows, err := s.store.LoadByDates(ctx, dates)
	if err != nil {
		return &SyncError{Op: "load", Err: err}
	}
	s.window = w
	s.dates = dates
	s.index = NewIndex(dates, rows)
	return nil
}

// Window returns the displayed week.
func (s *Sheet) Window() calendar.Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window
}

// Dates returns the practice days of the displayed week.
func (s *Sheet) Dates() []calendar.Day {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]calendar.Day, len(s.dates))
	copy(out, s.dates)
	return out
}

func (s *Sheet) IsPresent(member MemberID, date calendar.Day) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.IsPresent(member, date)
}

// Summary tallies one member over the displayed week.
func (s *Sheet) Summary(member MemberID) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.WeeklySummary(member, s.dates)
}

// Toggle flips presence for (member, date) and syncs it. date must be one of
// the displayed practice days.
func (s *Sheet) Toggle(ctx context.Context, member MemberID, date calendar.Day) (ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.showsLocked(date) {
		return ToggleResult{}, ErrDateNotInWindow
	}

	res := Toggle(ctx, s.index, s.store, member, date)
	if res.SyncErr == nil {
		return res, nil
	}

	// The write failed: rebuild from storage, or undo locally if we can't read.
	if err := s.loadLocked(ctx, s.window); err != nil {
		s.index.Flip(member, date)
	}
	res.Present = s.index.IsPresent(member, date)
	return res, nil
}

func (s *Sheet) showsLocked(date calendar.Day) bool {
	for _, d := range s.dates {
		if d == date {
			return true
		}
	}
	return false
}
