package schedule

import (
	"strings"
	"time"

	"gdqcal/internal/models"
)

// Crew filler segments are published as runs of this title.
const placeholderTitle = "Sleep"

var placeholderRunners = map[string]struct{}{
	"Tech Crew": {},
	"Faith":     {},
}

// Normalize converts raw records into runs, in schedule order.
//
// Interview segments and crew placeholder segments are dropped. Any other
// record that violates the Run invariants fails the whole call with a
// *MalformedRecordError and no runs are returned.
func Normalize(records []models.RawRecord, tagged NameSet) ([]models.Run, error) {
	runs := make([]models.Run, 0, len(records))
	for i, rec := range records {
		if rec.Type == models.RecordTypeInterview {
			continue
		}
		if isPlaceholder(rec) {
			continue
		}

		run, err := normalizeRecord(i, rec, tagged)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func isPlaceholder(rec models.RawRecord) bool {
	if rec.Name != placeholderTitle {
		return false
	}
	for _, r := range rec.Runners {
		if _, ok := placeholderRunners[r.Name]; ok {
			return true
		}
	}
	return false
}

func normalizeRecord(i int, rec models.RawRecord, tagged NameSet) (models.Run, error) {
	malformed := func(reason string) error {
		return &MalformedRecordError{Index: i, SourceID: string(rec.ID), Reason: reason}
	}

	if rec.ID == "" {
		return models.Run{}, malformed("missing id")
	}
	if strings.TrimSpace(rec.Name) == "" {
		return models.Run{}, malformed("missing title")
	}
	if len(rec.Runners) == 0 {
		return models.Run{}, malformed("no runners")
	}
	if rec.StartTime == "" || rec.EndTime == "" {
		return models.Run{}, malformed("missing start or end time")
	}

	start, err := time.Parse(time.RFC3339, rec.StartTime)
	if err != nil {
		return models.Run{}, malformed("invalid start time: " + err.Error())
	}
	end, err := time.Parse(time.RFC3339, rec.EndTime)
	if err != nil {
		return models.Run{}, malformed("invalid end time: " + err.Error())
	}
	if !start.Before(end) {
		return models.Run{}, malformed("start time is not before end time")
	}

	run := models.Run{
		Game:         rec.Name,
		Participants: make([]models.Participant, 0, len(rec.Runners)),
		Start:        start,
		End:          end,
		SourceID:     string(rec.ID),
		Category:     rec.Category,
		Console:      rec.Console,
	}
	for _, r := range rec.Runners {
		if strings.TrimSpace(r.Name) == "" {
			return models.Run{}, malformed("runner without a name")
		}
		p := models.Participant{Name: r.Name, Tagged: tagged.Contains(r.Name)}
		run.HasTagged = run.HasTagged || p.Tagged
		run.Participants = append(run.Participants, p)
	}
	return run, nil
}
