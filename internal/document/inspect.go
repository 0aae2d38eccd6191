package document

import (
	"bytes"
	"fmt"

	ics "github.com/arran4/golang-ical"
)

// Report describes a document read back from disk.
type Report struct {
	BOM    string
	Events int
	UIDs   []string
}

// DetectBOM names the byte-order mark at the start of data.
func DetectBOM(data []byte) string {
	// UTF-32 LE must be checked before UTF-16 LE.
	switch {
	case bytes.HasPrefix(data, []byte{0x00, 0x00, 0xFE, 0xFF}):
		return "UTF-32 BE"
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE, 0x00, 0x00}):
		return "UTF-32 LE"
	case bytes.HasPrefix(data, utf8BOM):
		return "UTF-8"
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return "UTF-16 LE"
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return "UTF-16 BE"
	default:
		return "none"
	}
}

// Inspect parses a written document and reports its encoding and entries.
func Inspect(data []byte) (*Report, error) {
	r := &Report{BOM: DetectBOM(data)}

	cal, err := ics.ParseCalendar(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return r, fmt.Errorf("failed to parse calendar: %w", err)
	}
	for _, ev := range cal.Events() {
		r.Events++
		if p := ev.GetProperty(ics.ComponentPropertyUniqueId); p != nil {
			r.UIDs = append(r.UIDs, p.Value)
		}
	}
	return r, nil
}
