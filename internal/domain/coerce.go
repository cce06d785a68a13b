package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// maxCount caps counters so absurd sensor values cannot overflow int on
// 32-bit targets.
const maxCount = math.MaxInt32

// asString returns v when it is a JSON string, "" otherwise.
func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// asFlag is true only for the boolean literal true.
func asFlag(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// asFloat reads a JSON number. Anything else, including NaN and ±Inf, is 0.
func asFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// asCount reads a non-negative integer counter. Fractions truncate toward zero.
func asCount(v any) int {
	f := asFloat(v)
	if f <= 0 {
		return 0
	}
	if f > maxCount {
		return maxCount
	}
	return int(f)
}

// asTime parses an RFC 3339 timestamp. ok is false for missing or malformed values.
func asTime(v any) (time.Time, bool) {
	s := asString(v)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// asLocation reads a location object. ok is false when v is not an object.
func asLocation(v any) (*Location, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return &Location{
		Lat:     asFloat(m["lat"]),
		Lng:     asFloat(m["lng"]),
		City:    asString(m["city"]),
		Country: asString(m["country"]),
	}, true
}

// asAgencies reads a pre-seeded agencyTargets array, skipping non-strings.
func asAgencies(v any) []Agency {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	set := NewAgencySet()
	for _, item := range items {
		if s, ok := item.(string); ok {
			set.Add(Agency(s))
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set.Sorted()
}

func normalizeType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	return s
}

func normalizeSeverity(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "low"
	}
	return s
}
