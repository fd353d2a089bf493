package entity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Formats written by ValuesToSave
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// timeLayouts are tried in order when a date or datetime arrives as a string
var timeLayouts = []string{
	DateTimeLayout,
	DateLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// CoerceInt converts v into an int64. Accepted: nil, integers, floats and
// numeric strings whose value equals its integer truncation. The bool is false
// when v cannot be stored in an integer field.
func CoerceInt(v any) (any, bool) {
	switch n := v.(type) {
	case nil:
		return nil, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return numericString(string(n))
	case string:
		return numericString(n)
	case []byte:
		return numericString(string(n))
	}
	return nil, false
}

func uintToInt(n uint64) (any, bool) {
	if n > math.MaxInt64 {
		return nil, false
	}
	return int64(n), true
}

func floatToInt(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f >= 1<<63 || f < -(1<<63) {
		return nil, false
	}
	return int64(f), true
}

func numericString(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return floatToInt(f)
}

// CoerceStringList converts v into a []string. Lists of strings are copied;
// a plain string is only accepted when it comes from the store, where it is
// split on sep. An empty stored string is an empty list.
func CoerceStringList(v any, fromDB bool, sep string) (any, bool) {
	switch list := v.(type) {
	case nil:
		return nil, true
	case []string:
		return append([]string{}, list...), true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		if !fromDB {
			return nil, false
		}
		if list == "" {
			return []string{}, true
		}
		return strings.Split(list, sep), true
	case []byte:
		if !fromDB {
			return nil, false
		}
		return CoerceStringList(string(list), true, sep)
	}
	return nil, false
}

// CoerceTime converts v into a time.Time. Accepted: nil, time values,
// non-empty strings in one of the supported layouts, and numbers taken as
// unix seconds. Strings without a zone are read as UTC.
func CoerceTime(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return nil, true
		}
		return *t, true
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	}
	if secs, ok := CoerceInt(v); ok && secs != nil {
		return time.Unix(secs.(int64), 0).UTC(), true
	}
	return nil, false
}

func parseTime(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return nil, false
}

// formatForStore renders a coerced scalar the way it is written back
func formatForStore(f *Field, v any, sep string) any {
	switch f.Type {
	case TypeStringList:
		list, _ := v.([]string)
		return strings.Join(list, sep)
	case TypeDate:
		if t, ok := v.(time.Time); ok {
			return t.Format(DateLayout)
		}
	case TypeDateTime:
		if t, ok := v.(time.Time); ok {
			return t.Format(DateTimeLayout)
		}
	}
	return v
}
