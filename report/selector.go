package report

import (
	"context"
	"sync"

	"github.com/dojang/attendance/attendance"
)

// =============================================================================
// SELECTOR - Stale-result guard for member selection
// =============================================================================

// Selector tracks which member is currently selected. A report started for
// an earlier selection is discarded when it finishes.
//
// It is meant for long-lived interactive callers that hold one selection at
// a time (a report panel or terminal client). The HTTP handlers are
// stateless per request and call Aggregator.Fetch directly.
//
//	t := sel.Select("alice")   // gen 1
//	sel.Select("bob")          // gen 2, alice's ticket is now stale
//	sel.Current(t) == false
type Selector struct {
	mu     sync.Mutex
	gen    uint64
	member attendance.MemberID
}

// Ticket identifies one selection.
type Ticket struct {
	Member attendance.MemberID
	gen    uint64
}

// Select makes member the current selection and invalidates older tickets.
func (s *Selector) Select(member attendance.MemberID) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.member = member
	return Ticket{Member: member, gen: s.gen}
}

// Current reports whether t is still the latest selection.
func (s *Selector) Current(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.gen == s.gen
}

// Selected returns the current member, if any.
func (s *Selector) Selected() attendance.MemberID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.member
}

// Run selects member and fetches its report. If another Select happens
// before the fetch returns, the result is dropped and ErrStale returned.
func (s *Selector) Run(ctx context.Context, a *Aggregator, r attendance.Reader, member attendance.MemberID) (Report, error) {
	t := s.Select(member)
	rep, err := a.Fetch(ctx, r, member)
	if !s.Current(t) {
		return Report{}, ErrStale
	}
	return rep, err
}
