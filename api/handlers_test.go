/*
handlers_test.go - HTTP tests for the attendance API

Tests run the full router against an in-memory SQLite store. "Today" is
fixed at 2025-10-21 (1404-07-29, a Tuesday) and the anchor is 1404-07-27.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dojang/attendance/attendance"
	"github.com/dojang/attendance/calendar"
	"github.com/dojang/attendance/report"
	"github.com/dojang/attendance/schedule"
	"github.com/dojang/attendance/store/sqlite"
)

var fixedNow = time.Date(2025, time.October, 21, 12, 0, 0, 0, time.UTC)

type testAPI struct {
	h      *Handler
	store  *sqlite.Store
	router http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	agg, err := report.NewAggregator("1404-07-27", schedule.Default())
	require.NoError(t, err)

	h := NewHandler(store, agg, nil)
	h.Location = time.UTC
	h.now = func() time.Time { return fixedNow }

	return &testAPI{h: h, store: store, router: NewRouter(h, nil)}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) seedMember(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, a.store.CreateMember(context.Background(), attendance.Member{
		ID: attendance.MemberID(id), FirstName: id, LastName: "Kim", Belt: "yellow",
	}))
}

func mustSecondary(t *testing.T, s string) calendar.Day {
	t.Helper()
	d, err := calendar.ParseSecondaryDay(s)
	require.NoError(t, err)
	return d
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestConvert(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/convert/canonical?date=1404-07-27", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decodeJSON[DateDTO](t, rec)
	assert.Equal(t, "2025-10-19", d.Canonical)
	assert.Equal(t, "Sunday", d.Weekday)
	assert.Equal(t, "Yekshanbeh", d.WeekdayName)

	rec = api.do(t, http.MethodGet, "/api/convert/secondary?date=2025-03-21", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1404-01-01", decodeJSON[DateDTO](t, rec).Secondary)

	for _, path := range []string{
		"/api/convert/canonical?date=1404-13-01",
		"/api/convert/canonical?date=1404-12-30",
		"/api/convert/canonical?date=",
		"/api/convert/secondary?date=2025-02-30",
		"/api/convert/secondary?date=0001-01-01",
	} {
		rec = api.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestMonthGrid(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/calendar/grid?year=1404&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	g := decodeJSON[GridDTO](t, rec)
	assert.Equal(t, 6, g.Blanks)
	assert.Equal(t, 31, g.Days)
	assert.Equal(t, "Farvardin", g.MonthName)
	assert.Equal(t, MonthRef{Year: 1403, Month: 12}, g.Prev)

	// Defaults to the current secondary month.
	rec = api.do(t, http.MethodGet, "/api/calendar/grid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	g = decodeJSON[GridDTO](t, rec)
	assert.Equal(t, 1404, g.Year)
	assert.Equal(t, 7, g.Month)

	rec = api.do(t, http.MethodGet, "/api/calendar/grid?year=1404&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// WEEK & SHEET
// =============================================================================

func TestWeek_DefaultsToToday(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/week", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	week := decodeJSON[WeekDTO](t, rec)

	assert.Equal(t, "1404-07-26", week.Start.Secondary)
	assert.Equal(t, "Saturday", week.Start.Weekday)
	require.Len(t, week.Occurrences, 3)
	assert.Equal(t, "1404-07-27", week.Occurrences[0].Secondary)
	assert.Equal(t, "1404-07-29", week.Occurrences[1].Secondary)
	assert.Equal(t, "1404-08-01", week.Occurrences[2].Secondary)

	rec = api.do(t, http.MethodGet, "/api/week?date=1404-07-27&shift=-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1404-07-19", decodeJSON[WeekDTO](t, rec).Start.Secondary)
}

func TestSheet_ShowsPresenceAndSummary(t *testing.T) {
	// GIVEN: two members, one marked present on Sunday
	api := newTestAPI(t)
	api.seedMember(t, "alice")
	api.seedMember(t, "bob")

	rec := api.do(t, http.MethodPost, "/api/attendance", MarkPresentRequest{
		MemberID: "alice", Dates: []string{"1404-07-27"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: the sheet for that week is loaded
	rec = api.do(t, http.MethodGet, "/api/sheet?date=1404-07-27", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sheet := decodeJSON[SheetDTO](t, rec)

	// THEN: alice is present once and absent twice; bob is absent throughout
	require.Len(t, sheet.Members, 2)
	byID := map[string]SheetRowDTO{}
	for _, m := range sheet.Members {
		byID[m.MemberID] = m
	}
	assert.Equal(t, []bool{true, false, false}, byID["alice"].Presence)
	assert.Equal(t, attendance.Summary{Present: 1, Absent: 2}, byID["alice"].Summary)
	assert.Equal(t, attendance.Summary{Present: 0, Absent: 3}, byID["bob"].Summary)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestToggle_RoundTrip(t *testing.T) {
	api := newTestAPI(t)
	api.seedMember(t, "alice")
	req := ToggleRequest{MemberID: "alice", Date: "1404-07-27"}

	rec := api.do(t, http.MethodPost, "/api/attendance/toggle", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[ToggleResponse](t, rec)
	assert.True(t, resp.Present)
	assert.True(t, resp.AppliedLocally)
	assert.Equal(t, "upsert", resp.Effect)
	assert.Empty(t, resp.SyncError)

	rows, err := api.store.LoadByMember(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-10-19", rows[0].Date.String())

	rec = api.do(t, http.MethodPost, "/api/attendance/toggle", req)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeJSON[ToggleResponse](t, rec)
	assert.False(t, resp.Present)
	assert.Equal(t, "delete", resp.Effect)

	rows, err = api.store.LoadByMember(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestToggle_Rejections(t *testing.T) {
	api := newTestAPI(t)
	api.seedMember(t, "alice")

	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing member", ToggleRequest{Date: "1404-07-27"}, http.StatusBadRequest},
		{"invalid date", ToggleRequest{MemberID: "alice", Date: "1404-07-32"}, http.StatusBadRequest},
		{"not a practice day", ToggleRequest{MemberID: "alice", Date: "1404-07-26"}, http.StatusBadRequest},
		{"unknown member", ToggleRequest{MemberID: "ghost", Date: "1404-07-27"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/attendance/toggle", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeJSON[ErrorResponse](t, rec).Error)
		})
	}
}

func TestMarkAndDeletePresent(t *testing.T) {
	api := newTestAPI(t)
	api.seedMember(t, "alice")

	rec := api.do(t, http.MethodPost, "/api/attendance", MarkPresentRequest{
		MemberID: "alice", Dates: []string{"1404-07-27", "1404-07-29", "1404-07-27"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rows, err := api.store.LoadByMember(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rec = api.do(t, http.MethodDelete, "/api/attendance?member_id=alice&date=1404-07-29", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodDelete, "/api/attendance?member_id=alice&date=1404-07-29", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rows, err = api.store.LoadByMember(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rec = api.do(t, http.MethodPost, "/api/attendance", MarkPresentRequest{
		MemberID: "ghost", Dates: []string{"1404-07-27"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/attendance", MarkPresentRequest{MemberID: "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// MEMBERS
// =============================================================================

func TestMembers_ContactDetails(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/members", CreateMemberRequest{
		ID: "m-karimi", FirstName: "Omid", NationalID: "0012345678", Mobile: "09121234567",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/members/m-karimi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := decodeJSON[MemberDTO](t, rec)
	assert.Equal(t, "0012345678", m.NationalID)
	assert.Equal(t, "09121234567", m.Mobile)
}

func TestMembers_CRUD(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/members", CreateMemberRequest{FirstName: "Sara", LastName: "Ahmadi", Belt: "green"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeJSON[MemberDTO](t, rec)
	assert.Len(t, created.ID, 36, "generated UUID")

	rec = api.do(t, http.MethodPost, "/api/members", CreateMemberRequest{LastName: "NoFirst"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPost, "/api/members", CreateMemberRequest{FirstName: "Omid", NationalID: "12ab"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[[]MemberDTO](t, rec), 1)

	rec = api.do(t, http.MethodGet, "/api/members/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sara", decodeJSON[MemberDTO](t, rec).FirstName)

	rec = api.do(t, http.MethodDelete, "/api/members/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/members/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(t, http.MethodDelete, "/api/members/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReport_FromAnchorToLastRow(t *testing.T) {
	// GIVEN: alice present on Tuesday 1404-07-29 only
	api := newTestAPI(t)
	api.seedMember(t, "alice")
	rec := api.do(t, http.MethodPost, "/api/attendance", MarkPresentRequest{
		MemberID: "alice", Dates: []string{"1404-07-29"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: the report is requested
	rec = api.do(t, http.MethodGet, "/api/members/alice/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decodeJSON[ReportDTO](t, rec)

	// THEN: Sunday 27 and Tuesday 29 are scheduled, newest first
	assert.Equal(t, "1404-07-27", rep.Anchor)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Present)
	assert.Equal(t, 1, rep.Absent)
	assert.Equal(t, "50.00", rep.Rate)
	require.Len(t, rep.Detail, 2)
	assert.Equal(t, "1404-07-29", rep.Detail[0].Date)
	assert.True(t, rep.Detail[0].Present)
	assert.Equal(t, "1404-07-27", rep.Detail[1].Date)
	assert.False(t, rep.Detail[1].Present)
	assert.Empty(t, rep.Warnings)
}

func TestReport_NoRowsAndUnknownMember(t *testing.T) {
	api := newTestAPI(t)
	api.seedMember(t, "alice")

	rec := api.do(t, http.MethodGet, "/api/members/alice/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decodeJSON[ReportDTO](t, rec)
	assert.Zero(t, rep.Total)
	assert.NotNil(t, rep.Detail)
	assert.Empty(t, rep.Detail)

	rec = api.do(t, http.MethodGet, "/api/members/ghost/report", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReport_OffPatternRowIsWarned(t *testing.T) {
	api := newTestAPI(t)
	api.seedMember(t, "alice")
	rec := api.do(t, http.MethodPost, "/api/attendance", MarkPresentRequest{
		MemberID: "alice", Dates: []string{"1404-07-27", "1404-07-28"}, // Sunday, Monday
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/members/alice/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decodeJSON[ReportDTO](t, rec)

	assert.Equal(t, 1, rep.Total)
	assert.Equal(t, 2, rep.Present)
	assert.Equal(t, 0, rep.Absent)
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, string(report.WarningOffPattern), rep.Warnings[0].Kind)
	assert.Equal(t, "1404-07-28", rep.Warnings[0].Date)
}

func TestExportReport(t *testing.T) {
	api := newTestAPI(t)
	api.seedMember(t, "alice")
	rec := api.do(t, http.MethodPost, "/api/attendance", MarkPresentRequest{
		MemberID: "alice", Dates: []string{"1404-07-29"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/members/alice/report.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report-alice.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	total, err := f.GetCellValue("Report", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}

// =============================================================================
// SCHEDULE FEED
// =============================================================================

func TestScheduleFeed(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/schedule.ics?from=1404-07-26&to=1404-08-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	body := rec.Body.String()
	assert.Equal(t, 3, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "20251019")

	rec = api.do(t, http.MethodGet, "/api/schedule.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 36, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))

	rec = api.do(t, http.MethodGet, "/api/schedule.ics?from=1404-08-02&to=1404-07-26", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodGet, "/api/schedule.ics?from=1300-01-01&to=1404-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// AUDIT & HEALTH
// =============================================================================

func TestAudit_RecordsOneRunPerMember(t *testing.T) {
	// GIVEN: alice with an off-pattern row, bob consistent
	api := newTestAPI(t)
	api.seedMember(t, "alice")
	api.seedMember(t, "bob")
	ctx := context.Background()
	require.NoError(t, api.store.UpsertPresent(ctx,
		attendance.PresentRow("alice", mustSecondary(t, "1404-07-28")),
		attendance.PresentRow("bob", mustSecondary(t, "1404-07-27")),
	))

	// WHEN: the audit runs
	rec := api.do(t, http.MethodPost, "/api/audit/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[AuditResponse](t, rec)

	// THEN: two records share one run ID and only alice is flagged
	assert.Equal(t, 2, resp.Members)
	assert.Equal(t, 1, resp.Flagged)
	require.Len(t, resp.Runs, 2)
	for _, run := range resp.Runs {
		assert.Equal(t, resp.RunID, run.RunID)
		assert.Equal(t, sqlite.AuditCompleted, run.Status)
		if run.MemberID == "alice" {
			assert.Equal(t, 1, run.OffPattern)
		} else {
			assert.Equal(t, 0, run.OffPattern)
		}
	}

	rec = api.do(t, http.MethodGet, "/api/audit/runs?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeJSON[[]AuditRunDTO](t, rec), 2)
}

func TestAuditScheduler_StartStop(t *testing.T) {
	api := newTestAPI(t)

	disabled := NewAuditScheduler(api.store, api.h.Aggregator, "")
	require.NoError(t, disabled.Start())
	disabled.Stop()

	bad := NewAuditScheduler(api.store, api.h.Aggregator, "not a cron spec")
	assert.Error(t, bad.Start())

	sched := NewAuditScheduler(api.store, api.h.Aggregator, "@every 1h")
	require.NoError(t, sched.Start())
	sched.Stop()
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	h := decodeJSON[HealthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "1404-07-27", h.Anchor)
	assert.Equal(t, []string{"Sunday", "Tuesday", "Thursday"}, h.Weekdays)
	assert.Equal(t, "1404-07-29", h.Today.Secondary)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(attendance.ErrMemberNotFound))
	assert.Equal(t, http.StatusBadGateway, statusFor(&attendance.SyncError{Op: "load", Err: assert.AnError}))
	assert.Equal(t, http.StatusBadRequest, statusFor(attendance.ErrDateNotInWindow))
	assert.Equal(t, http.StatusInternalServerError, statusFor(&report.AnchorError{Anchor: "x", Err: assert.AnError}))
}
