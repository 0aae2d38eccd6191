package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RecordTypeInterview marks an informational segment that is not a run.
const RecordTypeInterview = "interview"

// Schedule is the payload returned by the schedule API for one event.
type Schedule struct {
	Event   EventInfo   `json:"event"`
	Records []RawRecord `json:"schedule"`
}

// EventInfo describes the event a schedule belongs to.
type EventInfo struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// RawRecord is a schedule entry exactly as the source supplies it.
type RawRecord struct {
	Type      string      `json:"type"`
	Name      string      `json:"name"`
	Runners   []RawRunner `json:"runners"`
	StartTime string      `json:"starttime"`
	EndTime   string      `json:"endtime"`
	ID        SourceID    `json:"id"`
	Category  string      `json:"category"`
	Console   string      `json:"console"`
}

// RawRunner is a runner entry inside a RawRecord.
type RawRunner struct {
	Name string `json:"name"`
}

// SourceID is the schedule's run identifier. The API publishes numeric ids,
// but string ids are accepted as well.
type SourceID string

// UnmarshalJSON accepts a JSON string or number.
func (id *SourceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SourceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("source id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = SourceID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = SourceID(n.String())
	return nil
}
