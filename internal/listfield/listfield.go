// Package listfield reconciles the inconsistent shapes list-valued columns
// arrive in from storage. Historical rows hold native arrays, JSON-encoded
// text, bare strings, or NULL for the same column; everything funnels through
// Normalize at the boundary and comes out as a canonical ordered string list.
package listfield

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Placeholder is the display value for a missing or empty list.
const Placeholder = "Not provided"

// Normalize coerces a list-like value into a canonical []string.
// It accepts nil, []string, or string (raw, JSON-encoded array, or plain
// text) and never fails: malformed input degrades to a best-effort list.
func Normalize(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []string:
		if v == nil {
			return []string{}
		}
		return v
	case string:
		return normalizeString(v)
	case []byte:
		return normalizeString(string(v))
	case []interface{}:
		return fromAnySlice(v)
	default:
		return []string{}
	}
}

func normalizeString(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return []string{}
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		if items, ok := parsed.([]interface{}); ok {
			return fromAnySlice(items)
		}
	}

	// Not JSON, or JSON but not an array: treat as a single value.
	return []string{trimmed}
}

func fromAnySlice(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch e := item.(type) {
		case string:
			out = append(out, e)
		default:
			out = append(out, fmt.Sprintf("%v", e))
		}
	}
	return out
}

// Format renders a list-like value as a comma-separated display string.
// Empty or absent input yields Placeholder; a plain string that is not a
// JSON array is returned trimmed and otherwise unchanged. The result is
// always display-ready and Format never panics.
func Format(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return Placeholder
	case []string:
		return joinOrPlaceholder(v)
	case List:
		return joinOrPlaceholder(v)
	case string:
		return formatString(v)
	case []byte:
		return formatString(string(v))
	case []interface{}:
		return joinOrPlaceholder(fromAnySlice(v))
	default:
		return Placeholder
	}
}

func formatString(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Placeholder
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		if items, ok := parsed.([]interface{}); ok {
			return joinOrPlaceholder(fromAnySlice(items))
		}
	}

	return trimmed
}

func joinOrPlaceholder(values []string) string {
	if len(values) == 0 {
		return Placeholder
	}
	return strings.Join(values, ", ")
}

// List is a normalized string list that scans tolerantly from any of the
// legacy column shapes and always stores back as a JSON array.
type List []string

// Scan implements sql.Scanner. NULL, JSON array text, and bare strings all
// normalize; no row shape causes a scan error.
func (l *List) Scan(src interface{}) error {
	*l = List(Normalize(src))
	return nil
}

// Value implements driver.Valuer, serializing the canonical JSON form.
func (l List) Value() (driver.Value, error) {
	if l == nil {
		l = List{}
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list field: %w", err)
	}
	return string(data), nil
}

// Contains reports whether value is an element of the list.
func (l List) Contains(value string) bool {
	for _, item := range l {
		if item == value {
			return true
		}
	}
	return false
}

// Without returns a copy of the list with every occurrence of value removed.
func (l List) Without(value string) List {
	out := make(List, 0, len(l))
	for _, item := range l {
		if item != value {
			out = append(out, item)
		}
	}
	return out
}

// Format renders the list for display.
func (l List) Format() string {
	return joinOrPlaceholder(l)
}
