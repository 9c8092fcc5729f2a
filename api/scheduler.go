/*
scheduler.go - Cron-driven attendance consistency audit

PURPOSE:
  Periodically rebuilds every member's report and records the outcome, so
  rows the schedule can't account for (off-pattern days, days before the
  anchor) are surfaced without anyone opening the report.

DESIGN:
  - One audit pass gets a single RunID shared by all its member records
  - A member whose rows can't be read gets a "failed" record; the pass
    continues with the next member
  - Inconsistent reports are logged at WARN, never treated as errors

CONFIGURATION:
  Spec: standard 5-field cron expression (default "0 3 * * *").
        Empty disables the scheduler; RunOnce still works.

USAGE:
  audit := NewAuditScheduler(store, agg, "0 3 * * *")
  if err := audit.Start(); err != nil { ... }
  defer audit.Stop()

SEE ALSO:
  - handlers.go: TriggerAudit endpoint (manual run)
  - report/report.go: Aggregator
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dojang/attendance/applog"
	"github.com/dojang/attendance/report"
	"github.com/dojang/attendance/store/sqlite"
)

// AuditScheduler runs the consistency audit on a cron schedule.
type AuditScheduler struct {
	Store      *sqlite.Store
	Aggregator *report.Aggregator
	Spec       string
	Timeout    time.Duration

	cron *cron.Cron
	mu   sync.Mutex // serializes passes
	now  func() time.Time
}

// NewAuditScheduler creates a scheduler. It does nothing until Start.
func NewAuditScheduler(store *sqlite.Store, agg *report.Aggregator, spec string) *AuditScheduler {
	return &AuditScheduler{
		Store:      store,
		Aggregator: agg,
		Spec:       spec,
		Timeout:    5 * time.Minute,
		now:        time.Now,
	}
}

// Start registers the audit with cron. An empty Spec leaves it disabled.
func (a *AuditScheduler) Start() error {
	if a.Spec == "" {
		applog.Info("audit scheduler disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(a.Spec, a.runScheduled); err != nil {
		return err
	}
	c.Start()
	a.cron = c

	applog.Info("audit scheduler started", "spec", a.Spec)
	return nil
}

// Stop waits for a running pass to finish.
func (a *AuditScheduler) Stop() {
	if a.cron == nil {
		return
	}
	<-a.cron.Stop().Done()
	a.cron = nil
	applog.Info("audit scheduler stopped")
}

func (a *AuditScheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
	defer cancel()

	if _, err := a.RunOnce(ctx); err != nil {
		applog.Error("scheduled audit failed", err)
	}
}

// RunOnce audits every member and returns the records it saved. It fails only
// when the member list itself can't be read or a record can't be saved.
func (a *AuditScheduler) RunOnce(ctx context.Context) ([]sqlite.AuditRun, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	members, err := a.Store.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	started := a.now()
	applog.Info("audit started", "run", runID, "members", len(members))

	runs := make([]sqlite.AuditRun, 0, len(members))
	flagged := 0
	for i, m := range members {
		run := sqlite.AuditRun{
			ID:        uuid.New().String(),
			RunID:     runID,
			MemberID:  m.ID,
			Status:    sqlite.AuditCompleted,
			CreatedAt: started.Add(time.Duration(i) * time.Microsecond),
		}

		rep, err := a.Aggregator.Fetch(ctx, a.Store, m.ID)
		if err != nil {
			run.Status = sqlite.AuditFailed
			run.Error = err.Error()
			applog.Error("audit member failed", err, "run", runID, "member", m.ID)
		} else {
			run.Total = rep.Total
			run.Present = rep.Present
			run.Absent = rep.Absent
			for _, w := range rep.Warnings {
				switch w.Kind {
				case report.WarningOffPattern:
					run.OffPattern++
				case report.WarningBeforeAnchor:
					run.BeforeAnchor++
				}
			}
			if !rep.Consistent() {
				flagged++
				applog.Warn("attendance inconsistent",
					"run", runID, "member", m.ID,
					"off_pattern", run.OffPattern, "before_anchor", run.BeforeAnchor)
			}
		}

		if err := a.Store.SaveAuditRun(ctx, run); err != nil {
			return runs, err
		}
		runs = append(runs, run)
	}

	applog.Info("audit finished", "run", runID, "members", len(members), "flagged", flagged,
		"took", a.now().Sub(started).Round(time.Millisecond))
	return runs, nil
}
