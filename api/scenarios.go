/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	attendance data for demos. Every scenario is laid out relative to the
	configured anchor and today's date, so it lands on real practice days.

AVAILABLE SCENARIOS:

	new-member:           One member, no attendance yet
	regular-class:        Four members with attendance on every practice day
	                      from the anchor through today
	inconsistent-history: One member with rows the schedule can't explain
	                      (before the anchor, on a non-practice day)

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create members
 3. Upsert present rows

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "regular-class"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Report and audit handlers that read this data
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dojang/attendance/applog"
	"github.com/dojang/attendance/attendance"
	"github.com/dojang/attendance/calendar"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-member",
		Name:        "New Member",
		Description: "One member with no attendance recorded",
	},
	{
		ID:          "regular-class",
		Name:        "Regular Class",
		Description: "Four members attending most practice days since the anchor",
	},
	{
		ID:          "inconsistent-history",
		Name:        "Inconsistent History",
		Description: "Rows before the anchor and on a non-practice day, flagged by reports and the audit",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "new-member":
		load = h.loadNewMemberScenario
	case "regular-class":
		load = h.loadRegularClassScenario
	case "inconsistent-history":
		load = h.loadInconsistentHistoryScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("no scenario %q", req.ScenarioID))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	h.currentScenario = ""
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.currentScenario = req.ScenarioID

	applog.Info("scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewMemberScenario(ctx context.Context) error {
	return h.Store.CreateMember(ctx, attendance.Member{
		ID: "m-rezaei", FirstName: "Nima", LastName: "Rezaei", Belt: "white", CreatedAt: h.now(),
	})
}

// regularClassMembers attend every practice day except when
// (member index + occurrence index) % 3 == 2.
var regularClassMembers = []attendance.Member{
	{ID: "m-ahmadi", FirstName: "Sara", LastName: "Ahmadi", Belt: "black"},
	{ID: "m-karimi", FirstName: "Omid", LastName: "Karimi", Belt: "red"},
	{ID: "m-moradi", FirstName: "Leila", LastName: "Moradi", Belt: "blue"},
	{ID: "m-hosseini", FirstName: "Arash", LastName: "Hosseini", Belt: "green"},
}

func (h *Handler) loadRegularClassScenario(ctx context.Context) error {
	days, err := h.practiceDaysSinceAnchor()
	if err != nil {
		return err
	}

	var rows []attendance.Row
	for i, m := range regularClassMembers {
		m.CreatedAt = h.now()
		if err := h.Store.CreateMember(ctx, m); err != nil {
			return err
		}
		for j, d := range days {
			if (i+j)%3 == 2 {
				continue
			}
			rows = append(rows, attendance.PresentRow(m.ID, d))
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return h.Store.UpsertPresent(ctx, rows...)
}

func (h *Handler) loadInconsistentHistoryScenario(ctx context.Context) error {
	member := attendance.Member{
		ID: "m-tehrani", FirstName: "Mina", LastName: "Tehrani", Belt: "yellow", CreatedAt: h.now(),
	}
	if err := h.Store.CreateMember(ctx, member); err != nil {
		return err
	}

	anchor := h.Aggregator.Anchor()
	first := h.firstPracticeDayFrom(anchor)
	rows := []attendance.Row{
		attendance.PresentRow(member.ID, first.AddDays(-7)), // before the anchor
		attendance.PresentRow(member.ID, first),
	}
	for d := first.AddDays(1); d.Before(first.AddDays(7)); d = d.AddDays(1) {
		if !h.pattern.Matches(d) {
			rows = append(rows, attendance.PresentRow(member.ID, d))
			break
		}
	}
	return h.Store.UpsertPresent(ctx, rows...)
}

// practiceDaysSinceAnchor lists practice days from the anchor through today,
// or through the anchor's second week when today is earlier.
func (h *Handler) practiceDaysSinceAnchor() ([]calendar.Day, error) {
	anchor := h.Aggregator.Anchor()
	end := h.today()
	if end.Before(anchor) {
		end = anchor.AddDays(13)
	}
	return h.pattern.OccurrencesInRange(anchor, end)
}

func (h *Handler) firstPracticeDayFrom(d calendar.Day) calendar.Day {
	for i := 0; i < 7; i++ {
		if h.pattern.Matches(d) {
			return d
		}
		d = d.AddDays(1)
	}
	return d
}
