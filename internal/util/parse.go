package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// isoLayout matches the millisecond ISO-8601 form used in published data.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// timestampLayouts are tried in order. Zone-less layouts are read as UTC.
// time.Parse accepts a fractional second after the seconds field even when
// the layout does not mention one.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// shortZoneRegex matches a trailing "+hh" offset such as "+00", which
// Postgres emits and Go layouts cannot express alongside "+hh:mm".
var shortZoneRegex = regexp.MustCompile(`[+-]\d{2}$`)

// PickString returns the trimmed value when v is a non-blank string.
func PickString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// FirstString returns the first non-blank string value among keys of m.
func FirstString(m map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := PickString(m[k]); ok {
			return s, true
		}
	}
	return "", false
}

// ParseTimestamp parses s in any of the accepted timestamp layouts.
// The boolean is false when s is blank or unparseable; it never errors.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if shortZoneRegex.MatchString(s) && strings.Count(s, ":") >= 1 {
		s += ":00"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatISO renders t as UTC ISO-8601 with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// NormalizeTimestamp re-renders a parseable timestamp string in ISO form.
func NormalizeTimestamp(s string) (string, bool) {
	t, ok := ParseTimestamp(s)
	if !ok {
		return "", false
	}
	return FormatISO(t), true
}

// ParseFlag interprets boolean-like upstream values: booleans, the exact
// strings "true"/"false" and the numbers 1/0. The second result is false when v is
// absent or not boolean-like.
func ParseFlag(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		switch val {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	case float64:
		return flagFromNumber(val)
	case int:
		return flagFromNumber(float64(val))
	case int64:
		return flagFromNumber(float64(val))
	case interface{ String() string }:
		if f, err := strconv.ParseFloat(val.String(), 64); err == nil {
			return flagFromNumber(f)
		}
	}
	return false, false
}

func flagFromNumber(f float64) (bool, bool) {
	switch f {
	case 1:
		return true, true
	case 0:
		return false, true
	}
	return false, false
}
