package tools

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Args wraps the loosely-typed argument map chat hands over. JSON numbers
// arrive as float64, but models also emit quoted numbers and timestamps as
// strings, so every getter runs a conversion cascade.
type Args map[string]any

// String returns the named argument as a string, trimmed.
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Int returns the named argument as an int, falling back when absent or
// unparseable.
func (a Args) Int(key string, fallback int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// Int64 is Int for identifiers too large for 32 bits.
func (a Args) Int64(key string, fallback int64) int64 {
	switch v := a[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// Time parses the named argument as RFC3339, else Unix seconds.
func (a Args) Time(key string) (time.Time, bool) {
	s := a.String(key)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}

// Bool reads the named argument with the usual truthy forms.
func (a Args) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		}
	case float64:
		return v != 0
	}
	return false
}

// requireStrings verifies that every named argument is present and
// non-empty, returning the missing_required_args code otherwise.
func (a Args) requireStrings(keys ...string) string {
	var missing []string
	for _, key := range keys {
		if a.String(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	sort.Strings(missing)
	return fmt.Sprintf("missing_required_args:%s", strings.Join(missing, ","))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
