// Package store provides in-memory attendance collaborators.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/dojang/attendance/attendance"
	"github.com/dojang/attendance/calendar"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	rows    map[key]attendance.Row
	members map[attendance.MemberID]attendance.Member

	// Failure injection: when set, the matching operation returns the error.
	failReads  error
	failWrites error
}

type key struct {
	MemberID attendance.MemberID
	Date     calendar.Day
}

func NewMemory() *Memory {
	return &Memory{
		rows:    make(map[key]attendance.Row),
		members: make(map[attendance.MemberID]attendance.Member),
	}
}

// FailReads makes every subsequent read return err (nil clears it).
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = err
}

// FailWrites makes every subsequent write return err (nil clears it).
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = err
}

// UpsertPresent stores rows; duplicates in one call collapse to one row.
func (m *Memory) UpsertPresent(_ context.Context, rows ...attendance.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	for _, r := range rows {
		m.rows[key{r.MemberID, r.Date}] = attendance.PresentRow(r.MemberID, r.Date)
	}
	return nil
}

func (m *Memory) DeletePresent(_ context.Context, member attendance.MemberID, date calendar.Day) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	delete(m.rows, key{member, date})
	return nil
}

func (m *Memory) LoadByMember(_ context.Context, member attendance.MemberID) ([]attendance.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failReads != nil {
		return nil, m.failReads
	}

	var result []attendance.Row
	for k, r := range m.rows {
		if k.MemberID == member {
			result = append(result, r)
		}
	}
	sortRows(result)
	return result, nil
}

func (m *Memory) LoadByDates(_ context.Context, dates []calendar.Day) ([]attendance.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failReads != nil {
		return nil, m.failReads
	}

	wanted := make(map[calendar.Day]bool, len(dates))
	for _, d := range dates {
		wanted[d] = true
	}
	var result []attendance.Row
	for k, r := range m.rows {
		if wanted[k.Date] {
			result = append(result, r)
		}
	}
	sortRows(result)
	return result, nil
}

func sortRows(rows []attendance.Row) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].MemberID < rows[j].MemberID
	})
}

// =============================================================================
// MEMBERS
// =============================================================================

func (m *Memory) ListMembers(_ context.Context) ([]attendance.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failReads != nil {
		return nil, m.failReads
	}

	result := make([]attendance.Member, 0, len(m.members))
	for _, mem := range m.members {
		result = append(result, mem)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) GetMember(_ context.Context, id attendance.MemberID) (attendance.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failReads != nil {
		return attendance.Member{}, m.failReads
	}
	mem, ok := m.members[id]
	if !ok {
		return attendance.Member{}, attendance.ErrMemberNotFound
	}
	return mem, nil
}

func (m *Memory) CreateMember(_ context.Context, mem attendance.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	m.members[mem.ID] = mem
	return nil
}

// DeleteMember removes the member's rows first, then the member.
func (m *Memory) DeleteMember(_ context.Context, id attendance.MemberID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites != nil {
		return m.failWrites
	}
	if _, ok := m.members[id]; !ok {
		return attendance.ErrMemberNotFound
	}
	for k := range m.rows {
		if k.MemberID == id {
			delete(m.rows, k)
		}
	}
	delete(m.members, id)
	return nil
}

// Compile-time interface checks
var (
	_ attendance.Store       = (*Memory)(nil)
	_ attendance.MemberStore = (*Memory)(nil)
)
