package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-ical"
)

// utf8BOM is prepended to every document. Google Calendar mis-decodes
// non-ASCII text in imported files without it.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// maxLineOctets is the iCalendar content line limit, excluding CRLF.
const maxLineOctets = 75

// Encode serializes cal, prefixed with a UTF-8 byte-order mark. A calendar
// without entries is still a valid document.
func Encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	if len(cal.Children) == 0 {
		// go-ical refuses to encode a VCALENDAR without components.
		encodeEmpty(&buf, cal)
		return buf.Bytes(), nil
	}
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeEmpty writes a VCALENDAR that carries only its own properties.
// Prop values are stored already escaped by go-ical.
func encodeEmpty(buf *bytes.Buffer, cal *ical.Calendar) {
	writeLine(buf, "BEGIN:"+ical.CompCalendar)

	names := make([]string, 0, len(cal.Props))
	for name := range cal.Props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, prop := range cal.Props[name] {
			writeLine(buf, propLine(prop))
		}
	}

	writeLine(buf, "END:"+ical.CompCalendar)
}

func propLine(prop ical.Prop) string {
	var b strings.Builder
	b.WriteString(prop.Name)

	keys := make([]string, 0, len(prop.Params))
	for k := range prop.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(";" + k + "=")
		for i, v := range prop.Params[k] {
			if i > 0 {
				b.WriteByte(',')
			}
			if strings.ContainsAny(v, ";:,") {
				v = `"` + v + `"`
			}
			b.WriteString(v)
		}
	}

	b.WriteByte(':')
	b.WriteString(prop.Value)
	return b.String()
}

// writeLine folds line at maxLineOctets without splitting a UTF-8 sequence.
func writeLine(buf *bytes.Buffer, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		buf.WriteString(line[:cut])
		buf.WriteString("\r\n ")
		line = line[cut:]
		// Continuation lines start with a space.
		limit = maxLineOctets - 1
	}
	buf.WriteString(line)
	buf.WriteString("\r\n")
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".gdqcal-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
