package models

import (
	"fmt"
	"strconv"
	"strings"
)

// EventContext holds everything derived once per invocation about the event
// being exported. It is passed by value and never modified in place; use
// WithCalendarID to obtain a copy carrying a resolved remote calendar.
type EventContext struct {
	Name        string // Full event name, e.g. "Awesome Games Done Quick 2024"
	ShortName   string // Short name used in UIDs and file names, e.g. "AGDQ"
	Year        string // Four-digit event year
	Timezone    string // IANA timezone of the event
	ScheduleURL string // Canonical schedule page linked from every entry

	// SubsetAllowed is false for events that are themselves restricted to the
	// tagged community, where a subset calendar would duplicate the general one.
	SubsetAllowed bool

	calendarIDs map[string]string
}

// NewEventContext derives the short name and year from the event's full name.
func NewEventContext(info EventInfo, scheduleURL string) (EventContext, error) {
	words := strings.Fields(info.Name)
	if len(words) < 2 {
		return EventContext{}, fmt.Errorf("event name %q has too few words to derive a short name and year", info.Name)
	}

	ec := EventContext{
		Name:          info.Name,
		Timezone:      info.Timezone,
		ScheduleURL:   scheduleURL,
		SubsetAllowed: true,
	}

	switch {
	case wordAt(words, 1) == "Fatales":
		ec.ShortName = words[0]
		ec.SubsetAllowed = false
	case wordAt(words, 2) == "Queer":
		ec.ShortName = "GDQueer"
	case wordAt(words, 3) == "Express":
		ec.ShortName = "GDQX"
	default:
		var b strings.Builder
		for _, w := range words[:len(words)-1] {
			b.WriteString(strings.ToUpper(string([]rune(w)[0])))
		}
		ec.ShortName = b.String()
	}

	year := words[len(words)-1]
	// Speedrun Stage events publish two-digit years.
	if len(year) == 2 {
		n, err := strconv.Atoi(year)
		if err != nil {
			return EventContext{}, fmt.Errorf("event name %q does not end in a year", info.Name)
		}
		year = strconv.Itoa(2000 + n)
	}
	ec.Year = year

	return ec, nil
}

func wordAt(words []string, i int) string {
	if i < len(words) {
		return words[i]
	}
	return ""
}

// GeneralCalendarName is the remote calendar name for the full schedule.
func (ec EventContext) GeneralCalendarName() string {
	return fmt.Sprintf("%s %s Schedule", ec.ShortName, ec.Year)
}

// SubsetCalendarName is the remote calendar name for the tagged-only schedule.
func (ec EventContext) SubsetCalendarName(label string) string {
	return fmt.Sprintf("%s — %s Runs!", ec.GeneralCalendarName(), label)
}

// FileName returns the portable document name, with an optional suffix.
func (ec EventContext) FileName(suffix string) string {
	if suffix == "" {
		return fmt.Sprintf("%s-%s.ics", ec.Year, ec.ShortName)
	}
	return fmt.Sprintf("%s-%s-%s.ics", ec.Year, ec.ShortName, suffix)
}

// CalendarID returns the remote calendar resolved for a projection, if any.
func (ec EventContext) CalendarID(projection string) string {
	return ec.calendarIDs[projection]
}

// WithCalendarID returns a copy of ec with the remote calendar for projection set.
func (ec EventContext) WithCalendarID(projection, calendarID string) EventContext {
	ids := make(map[string]string, len(ec.calendarIDs)+1)
	for k, v := range ec.calendarIDs {
		ids[k] = v
	}
	ids[projection] = calendarID
	ec.calendarIDs = ids
	return ec
}
