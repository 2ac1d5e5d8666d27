package view

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/nijaru/yt-digest/utils"
)

// lookup walks a dotted path through nested JSON objects.
func lookup(record map[string]any, path ...string) (any, bool) {
	var cur any = record
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

func object(v any) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// asNumber reports only finite, non-zero values as present. NaN and
// infinities cannot be encoded as JSON.
func asNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if !finite(f) {
		return 0, false
	}
	return f, f != 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// toInt64 truncates f, saturating at the int64 range.
func toInt64(f float64) int64 {
	switch {
	case !finite(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

// asDuration accepts seconds, "h:mm:ss"/"m:ss" clock strings and ISO-8601
// durations such as PT2M5S.
func asDuration(v any) (float64, bool) {
	if n, ok := asNumber(v); ok {
		return n, n > 0
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	if n, ok := utils.ParseISODuration(s); ok {
		return n, n > 0 && finite(n)
	}
	if n, ok := utils.ParseClock(s); ok {
		return n, n > 0 && finite(n)
	}
	return 0, false
}

// firstString returns the first non-empty string found in candidates.
func firstString(candidates ...any) string {
	for _, c := range candidates {
		if s, ok := asString(c); ok {
			return s
		}
	}
	return ""
}

func firstNumber(candidates ...any) float64 {
	for _, c := range candidates {
		if n, ok := asNumber(c); ok {
			return n
		}
	}
	return 0
}

func firstDuration(candidates ...any) float64 {
	for _, c := range candidates {
		if n, ok := asDuration(c); ok {
			return n
		}
	}
	return 0
}

// firstList returns the first candidate that is a non-empty JSON array.
func firstList(candidates ...any) []any {
	for _, c := range candidates {
		if list, ok := c.([]any); ok && len(list) > 0 {
			return list
		}
	}
	return nil
}

// decodeList converts each element into T, skipping elements that do not
// fit. It never returns nil.
func decodeList[T any](items []any) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func stringList(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func value(record map[string]any, key string) any {
	v, _ := lookup(record, key)
	return v
}

func nested(record map[string]any, path ...string) any {
	v, _ := lookup(record, path...)
	return v
}
