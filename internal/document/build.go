// Package document renders runs into a portable iCalendar document and into
// the payloads sent to the remote calendar.
package document

import (
	"fmt"
	"strings"
	"time"

	"gdqcal/internal/identity"
	"gdqcal/internal/models"
	"gdqcal/internal/projection"

	"github.com/emersion/go-ical"
)

const (
	productID       = "-//gdqcal//EN"
	lastUpdatedForm = "2006-01-02 15:04:05"
)

// Entry is the calendar entry derived from one run under one projection.
type Entry struct {
	UID         string // Logical UID, stable across exports
	RemoteID    string // UID encoded for the remote calendar
	Summary     string
	Description string
	Start       time.Time // UTC
	End         time.Time // UTC
}

// Payload is the body of a remote create or update. Times keep the offset the
// schedule published them with.
type Payload struct {
	ID          string
	Summary     string
	Description string
	Start       string // RFC 3339
	End         string // RFC 3339
}

// Options control a Build.
type Options struct {
	// Now stamps the "last updated" line and DTSTAMP.
	Now time.Time
	// Reference is the timezone the "last updated" line is rendered in.
	Reference *time.Location
	// ReferenceLabel names Reference in the description, e.g. "ET".
	ReferenceLabel string
	// CalendarName is written as X-WR-CALNAME when set.
	CalendarName string
	// Remote enables payload generation.
	Remote bool
}

// Result is the output of Build. Entries and Payloads follow the order of the
// runs passed in; Payloads is empty unless Options.Remote was set.
type Result struct {
	Calendar *ical.Calendar
	Entries  []Entry
	Payloads []Payload
}

// Build renders runs, which must already be filtered by p, into a document
// and remote payloads.
func Build(ec models.EventContext, p projection.Projection, runs []models.Run, opts Options) *Result {
	ref := opts.Reference
	if ref == nil {
		ref = time.UTC
	}
	label := opts.ReferenceLabel
	if label == "" {
		label = ref.String()
	}
	lastUpdated := opts.Now.In(ref).Format(lastUpdatedForm)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if opts.CalendarName != "" {
		cal.Props.SetText("X-WR-CALNAME", opts.CalendarName)
	}
	if ec.Timezone != "" {
		cal.Props.SetText("X-WR-TIMEZONE", ec.Timezone)
	}

	res := &Result{
		Calendar: cal,
		Entries:  make([]Entry, 0, len(runs)),
	}
	for _, run := range runs {
		uid := identity.LogicalUID(ec.Year, ec.ShortName, run.SourceID)
		entry := Entry{
			UID:         uid,
			RemoteID:    identity.RemoteID(uid),
			Summary:     fmt.Sprintf("%s with %s", run.Game, p.Render(run)),
			Description: describe(run, ec.ScheduleURL, label, lastUpdated),
			Start:       run.Start.UTC(),
			End:         run.End.UTC(),
		}
		res.Entries = append(res.Entries, entry)
		cal.Children = append(cal.Children, toVEvent(entry, opts.Now).Component)

		if opts.Remote {
			res.Payloads = append(res.Payloads, Payload{
				ID:          entry.RemoteID,
				Summary:     entry.Summary,
				Description: entry.Description,
				Start:       run.Start.Format(time.RFC3339),
				End:         run.End.Format(time.RFC3339),
			})
		}
	}
	return res
}

func describe(run models.Run, scheduleURL, label, lastUpdated string) string {
	plural := ""
	if len(run.Participants) > 1 {
		plural = "s"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Runner%s: %s\n", plural, strings.Join(run.Names(), ", "))
	fmt.Fprintf(&b, "Game: %s\n", run.Game)
	fmt.Fprintf(&b, "Category: %s\n", run.Category)
	fmt.Fprintf(&b, "Console: %s\n", run.Console)
	fmt.Fprintf(&b, "\nFull schedule: %s", scheduleURL)
	fmt.Fprintf(&b, "\n\nLast updated (in %s): %s", label, lastUpdated)
	return b.String()
}

func toVEvent(e Entry, now time.Time) *ical.Event {
	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, e.UID)
	ev.Props.SetText(ical.PropSummary, e.Summary)
	ev.Props.SetText(ical.PropDescription, e.Description)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeStart, e.Start)
	ev.Props.SetDateTime(ical.PropDateTimeEnd, e.End)
	return ev
}
