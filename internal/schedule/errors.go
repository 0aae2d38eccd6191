package schedule

import "fmt"

// FetchError reports a failure to retrieve the schedule from the source.
type FetchError struct {
	URL        string
	StatusCode int // Zero when the request never produced a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch schedule %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch schedule %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedRecordError reports a schedule record that cannot become a Run.
// It aborts normalization of the whole schedule.
type MalformedRecordError struct {
	Index    int    // Position of the record in the schedule
	SourceID string // Source id of the record, if it had one
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed schedule record %d (id %q): %s", e.Index, e.SourceID, e.Reason)
}
