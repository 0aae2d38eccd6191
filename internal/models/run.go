package models

import "time"

// Participant is a single runner of a Run.
type Participant struct {
	Name   string // Display name as published by the schedule
	Tagged bool   // Whether the name appears in the tagged-name list
}

// Run represents a single timed segment of the event.
// This is the canonical representation built from a raw schedule record and is
// never mutated after normalization.
type Run struct {
	Game         string        // Title of the game being run
	Participants []Participant // Runners in schedule order, never empty
	Start        time.Time     // Start instant, in the offset published by the source
	End          time.Time     // End instant, in the offset published by the source
	SourceID     string        // Opaque run identifier from the schedule source
	Category     string        // Run category (e.g. "Any%")
	Console      string        // Platform the run is played on
	HasTagged    bool          // True if at least one participant is tagged
}

// Names returns every participant name in order.
func (r Run) Names() []string {
	names := make([]string, 0, len(r.Participants))
	for _, p := range r.Participants {
		names = append(names, p.Name)
	}
	return names
}

// TaggedNames returns the names of tagged participants in order.
func (r Run) TaggedNames() []string {
	var names []string
	for _, p := range r.Participants {
		if p.Tagged {
			names = append(names, p.Name)
		}
	}
	return names
}
