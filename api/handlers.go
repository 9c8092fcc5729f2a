/*
handlers.go - HTTP API handlers for the attendance service

PURPOSE:
  Exposes the calendar, schedule, attendance and report packages via a REST
  API. Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Calendar:
    GET    /api/convert/secondary?date=   Gregorian -> secondary
    GET    /api/convert/canonical?date=   secondary -> Gregorian
    GET    /api/calendar/grid?year=&month= Month grid (secondary calendar)

  Week:
    GET    /api/week?date=&shift=         Week window and practice days
    GET    /api/sheet?date=&shift=        Members x practice days matrix

  Attendance:
    POST   /api/attendance/toggle         Flip presence (sheet semantics)
    POST   /api/attendance                Mark dates present
    DELETE /api/attendance?member_id=&date= Clear one date

  Members:
    GET    /api/members                   List members
    POST   /api/members                   Create member
    GET    /api/members/{id}              Get member
    DELETE /api/members/{id}              Delete member and its rows
    GET    /api/members/{id}/report       Historical report
    GET    /api/members/{id}/report.xlsx  Report as a spreadsheet

  Schedule:
    GET    /api/schedule.ics?from=&to=    Practice days as iCalendar

  Audit:
    GET    /api/audit/runs?limit=         Recent audit records
    POST   /api/audit/run                 Run the audit now

DATES:
  Query and body dates are secondary-calendar "YYYY-MM-DD" unless the
  endpoint says otherwise. A missing date means today.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, invalid dates, date not on the displayed sheet
  - 404: Member not found
  - 502: The store failed (sync failure)
  - 500: Invalid anchor, internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Audit scheduler
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dojang/attendance/applog"
	"github.com/dojang/attendance/attendance"
	"github.com/dojang/attendance/calendar"
	"github.com/dojang/attendance/report"
	"github.com/dojang/attendance/schedule"
	"github.com/dojang/attendance/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Aggregator *report.Aggregator
	Audit      *AuditScheduler
	Feed       schedule.Feed

	// Location decides what "today" is.
	Location *time.Location

	pattern  schedule.Pattern
	validate *validator.Validate
	now      func() time.Time

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. The practice pattern comes from agg.
func NewHandler(store *sqlite.Store, agg *report.Aggregator, audit *AuditScheduler) *Handler {
	if audit == nil {
		audit = NewAuditScheduler(store, agg, "")
	}
	return &Handler{
		Store:      store,
		Aggregator: agg,
		Audit:      audit,
		Feed:       schedule.DefaultFeed,
		Location:   time.Local,
		pattern:    agg.Pattern(),
		validate:   validator.New(),
		now:        time.Now,
	}
}

func (h *Handler) today() calendar.Day {
	return calendar.DayOf(h.now().In(h.Location))
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// ConvertToSecondary converts a Gregorian date.
func (h *Handler) ConvertToSecondary(w http.ResponseWriter, r *http.Request) {
	day, err := calendar.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	writeJSON(w, http.StatusOK, toDateDTO(day))
}

// ConvertToCanonical converts a secondary-calendar date.
func (h *Handler) ConvertToCanonical(w http.ResponseWriter, r *http.Request) {
	day, err := calendar.ParseSecondaryDay(r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, "Invalid secondary date", err)
		return
	}
	writeJSON(w, http.StatusOK, toDateDTO(day))
}

// MonthGrid returns the grid for a secondary month; defaults to this month.
func (h *Handler) MonthGrid(w http.ResponseWriter, r *http.Request) {
	current := calendar.ToSecondary(h.today())
	year, err := intParam(r, "year", current.Year)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := intParam(r, "month", current.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}

	g := calendar.BuildMonthGrid(year, month, h.pattern.WeekStart)
	if g.Empty() {
		writeError(w, http.StatusBadRequest, "Invalid month",
			fmt.Errorf("no such month %d/%d", year, month))
		return
	}
	writeJSON(w, http.StatusOK, toGridDTO(g))
}

// =============================================================================
// WEEK HANDLERS
// =============================================================================

// Week returns the window containing date, shifted by shift weeks.
func (h *Handler) Week(w http.ResponseWriter, r *http.Request) {
	win, ok := h.windowParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.weekDTO(win, h.pattern.OccurrencesInWeek(win)))
}

// Sheet returns every member's presence over the week's practice days.
func (h *Handler) Sheet(w http.ResponseWriter, r *http.Request) {
	win, ok := h.windowParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	members, err := h.Store.ListMembers(ctx)
	if err != nil {
		writeDomainError(w, "Failed to list members", &attendance.SyncError{Op: "load", Err: err})
		return
	}

	sheet := attendance.NewSheet(h.Store, h.pattern)
	if err := sheet.Load(ctx, win.Start); err != nil {
		writeDomainError(w, "Failed to load attendance", err)
		return
	}

	dates := sheet.Dates()
	resp := SheetDTO{
		Week:    h.weekDTO(sheet.Window(), dates),
		Members: make([]SheetRowDTO, len(members)),
	}
	for i, m := range members {
		presence := make([]bool, len(dates))
		for j, d := range dates {
			presence[j] = sheet.IsPresent(m.ID, d)
		}
		resp.Members[i] = SheetRowDTO{
			MemberID: string(m.ID),
			Name:     m.FullName(),
			Belt:     m.Belt,
			Presence: presence,
			Summary:  sheet.Summary(m.ID),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) weekDTO(win calendar.Window, dates []calendar.Day) WeekDTO {
	return WeekDTO{
		Start:       toDateDTO(win.Start),
		End:         toDateDTO(win.End()),
		Occurrences: toDateDTOs(dates),
	}
}

// windowParam reads ?date= (secondary, default today) and ?shift= (weeks).
func (h *Handler) windowParam(w http.ResponseWriter, r *http.Request) (calendar.Window, bool) {
	day, err := h.dateParam(r, "date")
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return calendar.Window{}, false
	}
	shift, err := intParam(r, "shift", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return calendar.Window{}, false
	}
	return h.pattern.Window(day).Shift(shift), true
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// Toggle flips one member's presence on a practice day of the date's week.
// A failed write reverts to what storage holds and answers 502 with the
// reverted state.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	day, err := calendar.ParseSecondaryDay(req.Date)
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}
	member := attendance.MemberID(req.MemberID)
	if _, err := h.Store.GetMember(ctx, member); err != nil {
		writeDomainError(w, "Failed to get member", err)
		return
	}

	sheet := attendance.NewSheet(h.Store, h.pattern)
	if err := sheet.Load(ctx, day); err != nil {
		writeDomainError(w, "Failed to load attendance", err)
		return
	}
	res, err := sheet.Toggle(ctx, member, day)
	if err != nil {
		writeDomainError(w, "Cannot toggle this date", err)
		return
	}

	resp := ToggleResponse{
		MemberID:       string(res.Member),
		Date:           calendar.FormatSecondary(res.Date),
		Effect:         res.Effect.String(),
		Present:        res.Present,
		AppliedLocally: res.AppliedLocally,
	}
	status := http.StatusOK
	if res.SyncErr != nil {
		resp.SyncError = res.SyncErr.Error()
		status = http.StatusBadGateway
		applog.Error("toggle not synced", res.SyncErr, "member", member, "date", day)
	}
	writeJSON(w, status, resp)
}

// MarkPresent upserts present rows. Marking an already-present date is a
// no-op.
func (h *Handler) MarkPresent(w http.ResponseWriter, r *http.Request) {
	var req MarkPresentRequest
	if !h.decode(w, r, &req) {
		return
	}

	member := attendance.MemberID(req.MemberID)
	rows := make([]attendance.Row, 0, len(req.Dates))
	for _, s := range req.Dates {
		day, err := calendar.ParseSecondaryDay(s)
		if err != nil {
			writeDomainError(w, "Invalid date", err)
			return
		}
		if !h.pattern.Matches(day) {
			applog.Warn("marking off-pattern day", "member", member, "date", s)
		}
		rows = append(rows, attendance.PresentRow(member, day))
	}

	if err := h.Store.UpsertPresent(r.Context(), rows...); err != nil {
		writeDomainError(w, "Failed to mark attendance", syncErr("upsert", member, err))
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// DeletePresent clears one row. Clearing an absent date is a no-op.
func (h *Handler) DeletePresent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	member := attendance.MemberID(q.Get("member_id"))
	if member == "" {
		writeError(w, http.StatusBadRequest, "member_id is required", nil)
		return
	}
	day, err := calendar.ParseSecondaryDay(q.Get("date"))
	if err != nil {
		writeDomainError(w, "Invalid date", err)
		return
	}

	if err := h.Store.DeletePresent(r.Context(), member, day); err != nil {
		writeDomainError(w, "Failed to clear attendance", syncErr("delete", member, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns all members ordered by name.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Store.ListMembers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMember returns a single member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.Store.GetMember(r.Context(), attendance.MemberID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get member", err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// CreateMember creates a member, generating an ID when none is given.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if !h.decode(w, r, &req) {
		return
	}

	m := attendance.Member{
		ID:         attendance.MemberID(req.ID),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Belt:       req.Belt,
		NationalID: req.NationalID,
		Mobile:     req.Mobile,
		CreatedAt:  h.now(),
	}
	if m.ID == "" {
		m.ID = attendance.MemberID(uuid.New().String())
	}

	if err := h.Store.CreateMember(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create member", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

// DeleteMember removes a member and its attendance rows.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteMember(r.Context(), attendance.MemberID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetReport returns the member's report from the anchor to its last row.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep, h.Aggregator.Anchor()))
}

// ExportReport returns the report as an .xlsx download.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.buildReport(w, r)
	if !ok {
		return
	}

	title := string(rep.Member)
	if m, err := h.Store.GetMember(r.Context(), rep.Member); err == nil && m.FullName() != "" {
		title = m.FullName()
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, title, rep); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render report", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report-"+string(rep.Member)+".xlsx"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (report.Report, bool) {
	ctx := r.Context()
	member := attendance.MemberID(chi.URLParam(r, "id"))

	if _, err := h.Store.GetMember(ctx, member); err != nil {
		writeDomainError(w, "Failed to get member", err)
		return report.Report{}, false
	}

	rep, err := h.Aggregator.Fetch(ctx, h.Store, member)
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return report.Report{}, false
	}
	if !rep.Consistent() {
		applog.Warn("report inconsistent", "member", member,
			"present", rep.Present, "present_entries", rep.PresentEntries(), "warnings", len(rep.Warnings))
	}
	return rep, true
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// ScheduleFeed serves practice days in [from, to] as an iCalendar feed. The
// default range is this week plus the next eleven; spans over
// schedule.MaxFeedDays are rejected with 400.
func (h *Handler) ScheduleFeed(w http.ResponseWriter, r *http.Request) {
	win := h.pattern.Window(h.today())
	from, err := h.dateParamOr(r, "from", win.Start)
	if err != nil {
		writeDomainError(w, "Invalid from date", err)
		return
	}
	to, err := h.dateParamOr(r, "to", win.Shift(11).End())
	if err != nil {
		writeDomainError(w, "Invalid to date", err)
		return
	}

	var buf bytes.Buffer
	if err := h.pattern.WriteICS(&buf, from, to, h.Feed, h.now()); err != nil {
		writeDomainError(w, "Failed to render schedule", err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListAuditRuns returns recent audit records, newest first.
func (h *Handler) ListAuditRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}

	runs, err := h.Store.GetAuditRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list audit runs", err)
		return
	}

	dtos := make([]AuditRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAuditRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// TriggerAudit runs the consistency audit immediately.
func (h *Handler) TriggerAudit(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Audit.RunOnce(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Audit failed", err)
		return
	}

	resp := AuditResponse{Members: len(runs), Runs: make([]AuditRunDTO, len(runs))}
	for i, run := range runs {
		resp.RunID = run.RunID
		resp.Runs[i] = toAuditRunDTO(run)
		if run.Status == sqlite.AuditFailed || run.OffPattern+run.BeforeAnchor > 0 {
			resp.Flagged++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health pings the database and echoes the active schedule.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}

	weekdays := h.pattern.Weekdays()
	names := make([]string, len(weekdays))
	for i, d := range weekdays {
		names[i] = d.String()
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Anchor:   calendar.FormatSecondary(h.Aggregator.Anchor()),
		Weekdays: names,
		Today:    toDateDTO(h.today()),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// dateParam reads a secondary date; empty means today.
func (h *Handler) dateParam(r *http.Request, name string) (calendar.Day, error) {
	return h.dateParamOr(r, name, h.today())
}

func (h *Handler) dateParamOr(r *http.Request, name string, def calendar.Day) (calendar.Day, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	return calendar.ParseSecondaryDay(s)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func syncErr(op string, member attendance.MemberID, err error) error {
	if attendance.IsNotFound(err) {
		return err
	}
	return &attendance.SyncError{Op: op, MemberID: member, Err: err}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError picks the status from the error's kind.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case calendar.IsInvalidDate(err),
		errors.Is(err, calendar.ErrInvalidRange),
		errors.Is(err, attendance.ErrDateNotInWindow):
		return http.StatusBadRequest
	case attendance.IsNotFound(err):
		return http.StatusNotFound
	case attendance.IsSyncFailure(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
