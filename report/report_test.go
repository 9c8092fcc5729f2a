package report_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dojang/attendance/attendance"
	"github.com/dojang/attendance/attendance/store"
	"github.com/dojang/attendance/calendar"
	"github.com/dojang/attendance/report"
	"github.com/dojang/attendance/schedule"
)

const alice attendance.MemberID = "alice"

// Anchor 1404-01-01 is Friday 2025-03-21; the first practice days after it
// are Sun 03-23, Tue 03-25, Thu 03-27.
func newAggregator(t *testing.T) *report.Aggregator {
	t.Helper()
	agg, err := report.NewAggregator("1404-01-01", schedule.Default())
	require.NoError(t, err)
	return agg
}

func march(day int) calendar.Day {
	return calendar.NewDay(2025, time.March, day)
}

func TestReport_ZeroCase(t *testing.T) {
	rep, err := newAggregator(t).Build(alice, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Present)
	assert.Equal(t, 0, rep.Absent)
	assert.Equal(t, 0, rep.Total)
	assert.Empty(t, rep.Detail)
	assert.NotNil(t, rep.Detail)
	assert.True(t, rep.Rate.IsZero())
}

func TestReport_EndToEnd_ThirdOccurrence(t *testing.T) {
	// GIVEN: the member's only row is the 3rd practice day after the anchor
	agg := newAggregator(t)
	rows := []attendance.Row{attendance.PresentRow(alice, march(27))}

	// WHEN
	rep, err := agg.Build(alice, rows)
	require.NoError(t, err)

	// THEN
	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 1, rep.Present)
	assert.Equal(t, 2, rep.Absent)
	require.Len(t, rep.Detail, 3)

	assert.Equal(t, march(27), rep.Detail[0].Date)
	assert.Equal(t, march(25), rep.Detail[1].Date)
	assert.Equal(t, march(23), rep.Detail[2].Date)
	assert.True(t, rep.Detail[0].Present)
	assert.False(t, rep.Detail[1].Present)
	assert.False(t, rep.Detail[2].Present)
	assert.Equal(t, 1, rep.PresentEntries())

	assert.Equal(t, calendar.SecondaryDate{Year: 1404, Month: 1, Day: 7}, rep.Detail[0].Display)
	assert.Equal(t, "33.33", rep.Rate.StringFixed(2))
	assert.True(t, rep.Consistent())
}

func TestReport_UpperBoundIsLastRow(t *testing.T) {
	agg := newAggregator(t)
	rows := []attendance.Row{
		attendance.PresentRow(alice, march(25)),
		attendance.PresentRow(alice, march(23)),
	}

	rep, err := agg.Build(alice, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 0, rep.Absent)
	assert.Equal(t, "100.00", rep.Rate.StringFixed(2))
}

func TestReport_ClampWithRowsBeforeAnchor(t *testing.T) {
	// GIVEN: three rows before the anchor and one after
	agg := newAggregator(t)
	rows := []attendance.Row{
		attendance.PresentRow(alice, march(16)),
		attendance.PresentRow(alice, march(18)),
		attendance.PresentRow(alice, march(20)),
		attendance.PresentRow(alice, march(23)),
	}

	rep, err := agg.Build(alice, rows)
	require.NoError(t, err)

	// THEN: absent never goes negative and the rows are flagged
	assert.Equal(t, 1, rep.Total)
	assert.Equal(t, 4, rep.Present)
	assert.Equal(t, 0, rep.Absent)
	assert.Len(t, rep.Warnings, 3)
	for _, w := range rep.Warnings {
		assert.Equal(t, report.WarningBeforeAnchor, w.Kind)
	}
	assert.False(t, rep.Consistent())
}

func TestReport_AllRowsBeforeAnchor(t *testing.T) {
	rep, err := newAggregator(t).Build(alice, []attendance.Row{attendance.PresentRow(alice, march(2))})
	require.NoError(t, err)

	assert.Equal(t, 0, rep.Total)
	assert.Equal(t, 1, rep.Present)
	assert.Equal(t, 0, rep.Absent)
	assert.Empty(t, rep.Detail)
}

func TestReport_OffPatternRowIsWarnedNotReconciled(t *testing.T) {
	agg := newAggregator(t)
	rows := []attendance.Row{
		attendance.PresentRow(alice, march(24)), // Monday
		attendance.PresentRow(alice, march(27)),
	}

	rep, err := agg.Build(alice, rows)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Total)
	assert.Equal(t, 2, rep.Present)
	assert.Equal(t, 1, rep.Absent)
	assert.Equal(t, 1, rep.PresentEntries())
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, report.Warning{Kind: report.WarningOffPattern, Date: march(24)}, rep.Warnings[0])
}

func TestReport_IgnoresOtherMembersAndDuplicates(t *testing.T) {
	agg := newAggregator(t)
	rows := []attendance.Row{
		attendance.PresentRow(alice, march(23)),
		attendance.PresentRow(alice, march(23)),
		attendance.PresentRow("bob", march(27)),
	}

	rep, err := agg.Build(alice, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Total)
	assert.Equal(t, 1, rep.Present)
}

func TestNewAggregator_InvalidAnchor(t *testing.T) {
	for _, anchor := range []string{"1404-13-01", "", "not-a-date", "1404-12-30"} {
		_, err := report.NewAggregator(anchor, schedule.Default())
		require.Error(t, err, anchor)
		assert.ErrorIs(t, err, report.ErrInvalidAnchor)
		assert.ErrorIs(t, err, calendar.ErrInvalidDate)

		var anchorErr *report.AnchorError
		require.ErrorAs(t, err, &anchorErr)
		assert.Equal(t, anchor, anchorErr.Anchor)
	}
}

func TestFetch_ReadFailureIsSyncError(t *testing.T) {
	mem := store.NewMemory()
	mem.FailReads(errors.New("offline"))

	_, err := newAggregator(t).Fetch(context.Background(), mem, alice)
	assert.True(t, attendance.IsSyncFailure(err))
}

// =============================================================================
// STALE-RESULT GUARD
// =============================================================================

// gatedReader blocks LoadByMember until release is closed.
type gatedReader struct {
	attendance.Reader
	started chan struct{}
	release chan struct{}
}

func (g *gatedReader) LoadByMember(ctx context.Context, m attendance.MemberID) ([]attendance.Row, error) {
	close(g.started)
	<-g.release
	return g.Reader.LoadByMember(ctx, m)
}

func TestSelector_DiscardsSupersededReport(t *testing.T) {
	agg := newAggregator(t)
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertPresent(context.Background(), attendance.PresentRow(alice, march(27))))

	reader := &gatedReader{Reader: mem, started: make(chan struct{}), release: make(chan struct{})}
	var sel report.Selector

	done := make(chan error, 1)
	go func() {
		_, err := sel.Run(context.Background(), agg, reader, alice)
		done <- err
	}()

	<-reader.started
	sel.Select("bob")
	close(reader.release)

	assert.ErrorIs(t, <-done, report.ErrStale)
	assert.Equal(t, attendance.MemberID("bob"), sel.Selected())
}

func TestSelector_DeliversCurrentReport(t *testing.T) {
	agg := newAggregator(t)
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertPresent(context.Background(), attendance.PresentRow(alice, march(27))))

	var sel report.Selector
	rep, err := sel.Run(context.Background(), agg, mem, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Total)

	old := sel.Select(alice)
	sel.Select(alice)
	assert.False(t, sel.Current(old))
}

// =============================================================================
// XLSX EXPORT
// =============================================================================

func TestWriteXLSX(t *testing.T) {
	rep, err := newAggregator(t).Build(alice, []attendance.Row{attendance.PresentRow(alice, march(27))})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteXLSX(&buf, "Alice", rep))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue("Report", "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", total)

	// 5 summary lines, a blank line, the header on row 7, entries from row 8
	for cell, want := range map[string]string{
		"A7":  "date",
		"A8":  "1404-01-07",
		"B8":  "2025-03-27",
		"C8":  "Panjshanbeh",
		"D8":  "present",
		"D10": "absent",
	} {
		got, err := f.GetCellValue("Report", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, cell)
	}
}
