/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Dates cross the wire as
  strings: secondary-calendar dates as "YYYY-MM-DD" (e.g. "1404-07-27") and
  canonical dates as Gregorian "YYYY-MM-DD".

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Small response wrappers

VALIDATION:
  Request types carry go-playground/validator tags; handlers call
  h.validate.Struct before touching the store. Date syntax is checked by the
  calendar package, not by tags.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/dojang/attendance/attendance"
	"github.com/dojang/attendance/calendar"
	"github.com/dojang/attendance/report"
	"github.com/dojang/attendance/store/sqlite"
)

// =============================================================================
// DATES
// =============================================================================

// DateDTO shows one day in both calendars.
type DateDTO struct {
	Canonical   string `json:"canonical"`
	Secondary   string `json:"secondary"`
	Weekday     string `json:"weekday"`
	WeekdayName string `json:"weekday_name"`
	Display     string `json:"display"`
}

func toDateDTO(d calendar.Day) DateDTO {
	s := calendar.ToSecondary(d)
	return DateDTO{
		Canonical:   d.String(),
		Secondary:   s.String(),
		Weekday:     d.Weekday().String(),
		WeekdayName: calendar.WeekdayName(d.Weekday()),
		Display:     calendar.PersianDigits(s.String()),
	}
}

func toDateDTOs(days []calendar.Day) []DateDTO {
	out := make([]DateDTO, len(days))
	for i, d := range days {
		out[i] = toDateDTO(d)
	}
	return out
}

// MonthRef points at a neighbouring month for navigation.
type MonthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// GridDTO is a month grid; a 0 cell is a blank before day 1.
type GridDTO struct {
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	MonthName string   `json:"month_name"`
	WeekStart string   `json:"week_start"`
	Blanks    int      `json:"blanks"`
	Days      int      `json:"days"`
	Cells     []int    `json:"cells"`
	Weeks     [][]int  `json:"weeks"`
	Prev      MonthRef `json:"prev"`
	Next      MonthRef `json:"next"`
}

func toGridDTO(g calendar.MonthGrid) GridDTO {
	prev, next := g.Prev(), g.Next()
	return GridDTO{
		Year:      g.Year,
		Month:     g.Month,
		MonthName: calendar.MonthName(g.Month),
		WeekStart: g.WeekStart.String(),
		Blanks:    g.Blanks(),
		Days:      g.DayCount(),
		Cells:     g.Cells,
		Weeks:     g.Weeks(),
		Prev:      MonthRef{Year: prev.Year, Month: prev.Month},
		Next:      MonthRef{Year: next.Year, Month: next.Month},
	}
}

// WeekDTO is a week window and its practice days.
type WeekDTO struct {
	Start       DateDTO   `json:"start"`
	End         DateDTO   `json:"end"`
	Occurrences []DateDTO `json:"occurrences"`
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// SheetRowDTO is one member's line in the weekly sheet. Presence lines up
// with SheetDTO.Week.Occurrences.
type SheetRowDTO struct {
	MemberID string             `json:"member_id"`
	Name     string             `json:"name"`
	Belt     string             `json:"belt,omitempty"`
	Presence []bool             `json:"presence"`
	Summary  attendance.Summary `json:"summary"`
}

// SheetDTO is the weekly attendance sheet.
type SheetDTO struct {
	Week    WeekDTO       `json:"week"`
	Members []SheetRowDTO `json:"members"`
}

// ToggleRequest flips one member's presence on one practice day.
type ToggleRequest struct {
	MemberID string `json:"member_id" validate:"required"`
	Date     string `json:"date" validate:"required"` // secondary
}

// ToggleResponse reports the outcome of a toggle. Present is the state after
// any revert; SyncError is set when the store write failed.
type ToggleResponse struct {
	MemberID       string `json:"member_id"`
	Date           string `json:"date"`
	Effect         string `json:"effect"`
	Present        bool   `json:"present"`
	AppliedLocally bool   `json:"applied_locally"`
	SyncError      string `json:"sync_error,omitempty"`
}

// MarkPresentRequest upserts present rows for one member.
type MarkPresentRequest struct {
	MemberID string   `json:"member_id" validate:"required"`
	Dates    []string `json:"dates" validate:"required,min=1,dive,required"` // secondary
}

// =============================================================================
// MEMBERS
// =============================================================================

// MemberDTO represents a member in API responses.
type MemberDTO struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Belt       string `json:"belt,omitempty"`
	NationalID string `json:"national_id,omitempty"`
	Mobile     string `json:"mobile,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func toMemberDTO(m attendance.Member) MemberDTO {
	dto := MemberDTO{
		ID:         string(m.ID),
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Belt:       m.Belt,
		NationalID: m.NationalID,
		Mobile:     m.Mobile,
	}
	if !m.CreatedAt.IsZero() {
		dto.CreatedAt = m.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// CreateMemberRequest is the request to create a member. An empty ID gets a
// generated UUID.
type CreateMemberRequest struct {
	ID         string `json:"id" validate:"omitempty,max=64"`
	FirstName  string `json:"first_name" validate:"required,max=100"`
	LastName   string `json:"last_name" validate:"max=100"`
	Belt       string `json:"belt" validate:"max=32"`
	NationalID string `json:"national_id" validate:"omitempty,numeric,len=10"`
	Mobile     string `json:"mobile" validate:"omitempty,numeric,max=15"`
}

// =============================================================================
// REPORTS
// =============================================================================

// EntryDTO is one scheduled practice day in a report.
type EntryDTO struct {
	Date      string `json:"date"` // secondary
	Canonical string `json:"canonical"`
	Weekday   string `json:"weekday_name"`
	Present   bool   `json:"present"`
}

// WarningDTO flags a counted row with no matching practice day.
type WarningDTO struct {
	Kind      string `json:"kind"`
	Date      string `json:"date"`
	Canonical string `json:"canonical"`
}

// ReportDTO is a member's historical report.
type ReportDTO struct {
	MemberID string       `json:"member_id"`
	Anchor   string       `json:"anchor"`
	Present  int          `json:"present"`
	Absent   int          `json:"absent"`
	Total    int          `json:"total"`
	Rate     string       `json:"rate"`
	Detail   []EntryDTO   `json:"detail"`
	Warnings []WarningDTO `json:"warnings"`
}

func toReportDTO(rep report.Report, anchor calendar.Day) ReportDTO {
	dto := ReportDTO{
		MemberID: string(rep.Member),
		Anchor:   calendar.FormatSecondary(anchor),
		Present:  rep.Present,
		Absent:   rep.Absent,
		Total:    rep.Total,
		Rate:     rep.Rate.StringFixed(2),
		Detail:   make([]EntryDTO, len(rep.Detail)),
		Warnings: make([]WarningDTO, len(rep.Warnings)),
	}
	for i, e := range rep.Detail {
		dto.Detail[i] = EntryDTO{
			Date:      e.Display.String(),
			Canonical: e.Date.String(),
			Weekday:   calendar.WeekdayName(e.Date.Weekday()),
			Present:   e.Present,
		}
	}
	for i, w := range rep.Warnings {
		dto.Warnings[i] = WarningDTO{
			Kind:      string(w.Kind),
			Date:      calendar.FormatSecondary(w.Date),
			Canonical: w.Date.String(),
		}
	}
	return dto
}

// =============================================================================
// AUDIT
// =============================================================================

// AuditRunDTO represents one member's result in a consistency audit.
type AuditRunDTO struct {
	ID           string `json:"id"`
	RunID        string `json:"run_id"`
	MemberID     string `json:"member_id"`
	Status       string `json:"status"`
	Total        int    `json:"total"`
	Present      int    `json:"present"`
	Absent       int    `json:"absent"`
	OffPattern   int    `json:"off_pattern"`
	BeforeAnchor int    `json:"before_anchor"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func toAuditRunDTO(r sqlite.AuditRun) AuditRunDTO {
	return AuditRunDTO{
		ID:           r.ID,
		RunID:        r.RunID,
		MemberID:     string(r.MemberID),
		Status:       r.Status,
		Total:        r.Total,
		Present:      r.Present,
		Absent:       r.Absent,
		OffPattern:   r.OffPattern,
		BeforeAnchor: r.BeforeAnchor,
		Error:        r.Error,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}

// AuditResponse summarizes a manually triggered audit.
type AuditResponse struct {
	RunID   string        `json:"run_id"`
	Members int           `json:"members"`
	Flagged int           `json:"flagged"`
	Runs    []AuditRunDTO `json:"runs"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// MISC
// =============================================================================

// HealthResponse reports liveness and the active schedule.
type HealthResponse struct {
	Status   string   `json:"status"`
	Anchor   string   `json:"anchor"`
	Weekdays []string `json:"weekdays"`
	Today    DateDTO  `json:"today"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
