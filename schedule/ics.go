package schedule

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dojang/attendance/calendar"
)

// Feed describes an exported practice calendar.
type Feed struct {
	Name     string // calendar display name
	Summary  string // event title
	Domain   string // UID suffix, e.g. "dojang.example"
	Location string
}

// DefaultFeed is used when the caller has nothing better.
var DefaultFeed = Feed{Name: "Practice", Summary: "Practice", Domain: "attendance.local"}

// MaxFeedDays bounds the span of one feed (about three years).
const MaxFeedDays = 3 * 366

// ErrFeedTooLong matches calendar.ErrInvalidRange.
var ErrFeedTooLong = fmt.Errorf("%w: feed spans more than %d days", calendar.ErrInvalidRange, MaxFeedDays)

// WriteICS writes one all-day VEVENT per practice day in [start, end].
// Each description carries the secondary-calendar date. Spans longer than
// MaxFeedDays fail with ErrFeedTooLong before anything is built.
func (p Pattern) WriteICS(w io.Writer, start, end calendar.Day, feed Feed, now time.Time) error {
	if calendar.DaysBetween(start, end)+1 > MaxFeedDays {
		return ErrFeedTooLong
	}
	days, err := p.OccurrencesInRange(start, end)
	if err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//" + feed.Domain + "//attendance//EN")
	if feed.Name != "" {
		cal.SetName(feed.Name)
	}

	for _, d := range days {
		ev := cal.AddEvent(fmt.Sprintf("%s@%s", d.String(), feed.Domain))
		ev.SetDtStampTime(now.UTC())
		ev.SetAllDayStartAt(d.Time())
		ev.SetAllDayEndAt(d.AddDays(1).Time())
		ev.SetSummary(feed.Summary)
		ev.SetDescription(calendar.WeekdayName(d.Weekday()) + " " + calendar.FormatSecondary(d))
		if feed.Location != "" {
			ev.SetLocation(feed.Location)
		}
	}

	_, err = io.WriteString(w, cal.Serialize())
	return err
}
