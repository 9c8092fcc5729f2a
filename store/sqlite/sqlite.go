/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists members, present-only attendance rows and consistency audit runs.
  Implements the attendance collaborator interfaces so the engine never sees
  SQL.

INTERFACES IMPLEMENTED:
  attendance.Store:       rows by member / by dates, upsert, delete
  attendance.MemberStore: member records

PRESENT-ONLY STORAGE:
  The attendance table only ever holds present=1 rows. Marking someone
  absent deletes their row. A UNIQUE(member_id, date) constraint keeps at
  most one row per pair, and upserts go through ON CONFLICT so repeating a
  write changes nothing.

KEY TABLES:
  members:     member records
  attendance:  (member_id, date) present rows, date as canonical YYYY-MM-DD
  audit_runs:  one row per member per consistency audit

CONCURRENCY:
  Uses sync.RWMutex around the connection, as SQLite allows a single writer.

WAL MODE:
  Opened with WAL so readers don't block the writer.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - attendance/store.go: Interface definitions
  - attendance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dojang/attendance/attendance"
	"github.com/dojang/attendance/calendar"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every new connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		belt TEXT NOT NULL DEFAULT '',
		national_id TEXT NOT NULL DEFAULT '',
		mobile TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Present-only: a missing row on a practice day means absent
	CREATE TABLE IF NOT EXISTS attendance (
		member_id TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		present INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		UNIQUE(member_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);

	CREATE TABLE IF NOT EXISTS audit_runs (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		status TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		present INTEGER NOT NULL DEFAULT 0,
		absent INTEGER NOT NULL DEFAULT 0,
		off_pattern INTEGER NOT NULL DEFAULT 0,
		before_anchor INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_runs_created ON audit_runs(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTENDANCE (attendance.Store interface)
// =============================================================================

// UpsertPresent writes rows in one transaction. Duplicates merge.
func (s *Store) UpsertPresent(ctx context.Context, rows ...attendance.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO attendance (member_id, date, present, created_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(member_id, date) DO UPDATE SET present = 1
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, query, string(r.MemberID), r.Date.String(), now); err != nil {
			if isForeignKeyError(err) {
				return fmt.Errorf("%w: %s", attendance.ErrMemberNotFound, r.MemberID)
			}
			return fmt.Errorf("failed to upsert attendance: %w", err)
		}
	}
	return tx.Commit()
}

// DeletePresent removes one row; a missing row is not an error.
func (s *Store) DeletePresent(ctx context.Context, member attendance.MemberID, date calendar.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM attendance WHERE member_id = ? AND date = ?",
		string(member), date.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	return nil
}

// LoadByMember returns all rows of a member, oldest first.
func (s *Store) LoadByMember(ctx context.Context, member attendance.MemberID) ([]attendance.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRows(ctx,
		"SELECT member_id, date FROM attendance WHERE member_id = ? AND present = 1 ORDER BY date ASC",
		string(member),
	)
}

// LoadByDates returns the rows of every member on the given dates.
func (s *Store) LoadByDates(ctx context.Context, dates []calendar.Day) ([]attendance.Row, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(dates))
	args := make([]any, len(dates))
	for i, d := range dates {
		placeholders[i] = "?"
		args[i] = d.String()
	}

	query := `
		SELECT member_id, date FROM attendance
		WHERE present = 1 AND date IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY date ASC, member_id ASC
	`
	return s.queryRows(ctx, query, args...)
}

// LoadAll returns every stored row, used by the consistency audit.
func (s *Store) LoadAll(ctx context.Context) ([]attendance.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRows(ctx, "SELECT member_id, date FROM attendance WHERE present = 1 ORDER BY member_id, date")
}

func (s *Store) queryRows(ctx context.Context, query string, args ...any) ([]attendance.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []attendance.Row
	for rows.Next() {
		var member, date string
		if err := rows.Scan(&member, &date); err != nil {
			return nil, err
		}
		day, err := calendar.ParseDay(date)
		if err != nil {
			return nil, fmt.Errorf("corrupt attendance date for %s: %w", member, err)
		}
		result = append(result, attendance.PresentRow(attendance.MemberID(member), day))
	}
	return result, rows.Err()
}

// =============================================================================
// MEMBERS (attendance.MemberStore interface)
// =============================================================================

// CreateMember saves a member; saving an existing ID updates its names.
func (s *Store) CreateMember(ctx context.Context, m attendance.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO members (id, first_name, last_name, belt, national_id, mobile, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			belt = excluded.belt,
			national_id = excluded.national_id,
			mobile = excluded.mobile
	`
	_, err := s.db.ExecContext(ctx, query,
		string(m.ID), m.FirstName, m.LastName, m.Belt, m.NationalID, m.Mobile,
		createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetMember retrieves a member by ID.
func (s *Store) GetMember(ctx context.Context, id attendance.MemberID) (attendance.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m attendance.Member
	var memberID, createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, belt, national_id, mobile, created_at FROM members WHERE id = ?",
		string(id),
	).Scan(&memberID, &m.FirstName, &m.LastName, &m.Belt, &m.NationalID, &m.Mobile, &createdAt)

	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Member{}, attendance.ErrMemberNotFound
	}
	if err != nil {
		return attendance.Member{}, err
	}

	m.ID = attendance.MemberID(memberID)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return m, nil
}

// ListMembers returns all members, oldest first.
func (s *Store) ListMembers(ctx context.Context) ([]attendance.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, first_name, last_name, belt, national_id, mobile, created_at FROM members ORDER BY created_at ASC, id ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []attendance.Member
	for rows.Next() {
		var m attendance.Member
		var id, createdAt string
		if err := rows.Scan(&id, &m.FirstName, &m.LastName, &m.Belt, &m.NationalID, &m.Mobile, &createdAt); err != nil {
			return nil, err
		}
		m.ID = attendance.MemberID(id)
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		members = append(members, m)
	}
	return members, rows.Err()
}

// DeleteMember removes a member and its attendance rows atomically.
func (s *Store) DeleteMember(ctx context.Context, id attendance.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance WHERE member_id = ?", string(id)); err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM members WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrMemberNotFound
	}
	return tx.Commit()
}

// =============================================================================
// AUDIT RUNS STORE
// =============================================================================

// AuditRun records one member's result in a consistency audit.
type AuditRun struct {
	ID           string
	RunID        string // shared by every member checked in one pass
	MemberID     attendance.MemberID
	Status       string // completed, failed
	Total        int
	Present      int
	Absent       int
	OffPattern   int
	BeforeAnchor int
	Error        string
	CreatedAt    time.Time
}

const (
	AuditCompleted = "completed"
	AuditFailed    = "failed"
)

// SaveAuditRun saves an audit run.
func (s *Store) SaveAuditRun(ctx context.Context, r AuditRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO audit_runs (id, run_id, member_id, status, total, present, absent,
			off_pattern, before_anchor, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			total = excluded.total,
			present = excluded.present,
			absent = excluded.absent,
			off_pattern = excluded.off_pattern,
			before_anchor = excluded.before_anchor,
			error = excluded.error
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.RunID, string(r.MemberID), r.Status,
		r.Total, r.Present, r.Absent, r.OffPattern, r.BeforeAnchor, r.Error,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// GetAuditRuns returns the most recent audit runs, newest first. A limit of
// zero or less returns all of them.
func (s *Store) GetAuditRuns(ctx context.Context, limit int) ([]AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, run_id, member_id, status, total, present, absent,
			off_pattern, before_anchor, error, created_at
		FROM audit_runs
		ORDER BY created_at DESC, member_id ASC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []AuditRun
	for rows.Next() {
		var r AuditRun
		var member, createdAt string
		if err := rows.Scan(
			&r.ID, &r.RunID, &member, &r.Status, &r.Total, &r.Present, &r.Absent,
			&r.OffPattern, &r.BeforeAnchor, &r.Error, &createdAt,
		); err != nil {
			return nil, err
		}
		r.MemberID = attendance.MemberID(member)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"audit_runs", "attendance", "members"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// Compile-time interface checks
var (
	_ attendance.Store       = (*Store)(nil)
	_ attendance.MemberStore = (*Store)(nil)
)
