// Package projection defines the calendar views produced from one schedule.
package projection

import (
	"strings"

	"gdqcal/internal/models"
)

// Names of the two projections.
const (
	GeneralName = "general"
	SubsetName  = "subset"
)

// nonRunTitles are administrative segments published as runs. They are kept
// in the general calendar but never in the subset calendar.
var nonRunTitles = map[string]struct{}{
	"pre-show":       {},
	"finale":         {},
	"the checkpoint": {},
}

// Projection is a named view over the run set: which runs to include, and how
// to render their participants.
type Projection struct {
	Name       string
	FileSuffix string // Appended to the document file name; empty for general
	Include    func(models.Run) bool
	Render     func(models.Run) string
}

// General includes every run and lists all participants.
func General() Projection {
	return Projection{
		Name:    GeneralName,
		Include: func(models.Run) bool { return true },
		Render: func(r models.Run) string {
			return strings.Join(r.Names(), ", ")
		},
	}
}

// Subset includes runs with at least one tagged participant and lists only
// the tagged participants, noting when others ran too.
func Subset(fileSuffix string) Projection {
	return Projection{
		Name:       SubsetName,
		FileSuffix: fileSuffix,
		Include: func(r models.Run) bool {
			if !r.HasTagged {
				return false
			}
			_, excluded := nonRunTitles[strings.ToLower(r.Game)]
			return !excluded
		},
		Render: func(r models.Run) string {
			tagged := r.TaggedNames()
			s := strings.Join(tagged, " & ")
			if len(r.Participants) > len(tagged) {
				s += " & more"
			}
			return s
		},
	}
}

// Apply returns the runs p includes, in their original order.
func Apply(p Projection, runs []models.Run) []models.Run {
	out := make([]models.Run, 0, len(runs))
	for _, r := range runs {
		if p.Include(r) {
			out = append(out, r)
		}
	}
	return out
}
