package schedule

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gdqcal/internal/config"
)

// NameSet is a case-folded set of participant names.
type NameSet map[string]struct{}

// NewNameSet builds a NameSet from the given names.
func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		set[strings.ToLower(n)] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the set, ignoring case. Only list
// entries are trimmed; name must match exactly otherwise.
func (s NameSet) Contains(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}

// LoadNames reads a newline-delimited name list. A missing file is a
// configuration error.
func LoadNames(path string) (NameSet, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: tagged name list %s not found", config.ErrConfiguration, path)
		}
		return nil, fmt.Errorf("unable to open tagged name list: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read tagged name list %s: %w", path, err)
	}
	return NewNameSet(names...), nil
}
