package tagcsv

import (
	"fmt"
	"strconv"
	"strings"
)

// HeaderMode controls what the decoder does with empty or repeated names.
type HeaderMode int

const (
	// AutoRepairHeaders names empty columns Column_<index> and suffixes
	// repeated names with _1, _2, ...
	AutoRepairHeaders HeaderMode = iota
	// StrictHeaders rejects any header with an empty or repeated name.
	StrictHeaders
)

func (m HeaderMode) String() string {
	if m == StrictHeaders {
		return "strict-headers"
	}
	return "auto-repair-headers"
}

// ParseHeaderMode accepts "strict-headers" or "auto-repair-headers".
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto-repair-headers", "auto", "repair":
		return AutoRepairHeaders, nil
	case "strict-headers", "strict":
		return StrictHeaders, nil
	}
	return 0, fmt.Errorf("unknown header mode %q", s)
}

// cleanHeaderField trims whitespace and any byte-order-mark artifact.
func cleanHeaderField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\ufeff", ""))
}

// NormalizeHeader turns a raw header row into distinct, non-empty names.
func NormalizeHeader(raw []string, mode HeaderMode) ([]string, error) {
	names := make([]string, len(raw))
	distinct := make(map[string]struct{}, len(raw))
	for i, r := range raw {
		names[i] = cleanHeaderField(r)
		if names[i] != "" {
			distinct[names[i]] = struct{}{}
		}
	}
	if len(distinct) < 2 {
		return nil, fmt.Errorf("%w: %d distinct column names in %q", ErrInvalidHeader, len(distinct), raw)
	}

	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if name == "" {
			if mode == StrictHeaders {
				return nil, fmt.Errorf("%w: empty column name at position %d", ErrInvalidHeader, i)
			}
			name = "Column_" + strconv.Itoa(i)
		}
		if seen[name] {
			if mode == StrictHeaders {
				return nil, fmt.Errorf("%w: duplicate column name %q", ErrInvalidHeader, name)
			}
			name = nextFreeName(name, seen)
		}
		seen[name] = true
		names[i] = name
	}
	return names, nil
}

func nextFreeName(base string, seen map[string]bool) string {
	for n := 1; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		if !seen[candidate] {
			return candidate
		}
	}
}
