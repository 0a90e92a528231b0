package placestate

import (
	"math"
	"strings"
	"time"
)

// timestampFields are tried in priority order.
var timestampFields = []string{"updatedAt", "createdAt", "ts", "lastSeenAt"}

type extractor func(v any) (int64, bool)

// extractors cover the shape families seen in stored records.
var extractors = []extractor{
	fromNumber,
	fromMillisValue,
	fromTimestampObject,
	fromDateString,
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// ExtractTimestamp resolves a record's "when" in epoch millis. It returns 0
// when no candidate field holds a usable value.
func ExtractTimestamp(record map[string]any) int64 {
	for _, field := range timestampFields {
		v, ok := record[field]
		if !ok || v == nil {
			continue
		}
		for _, ex := range extractors {
			if ms, ok := ex(v); ok {
				return ms
			}
		}
	}
	return 0
}

func fromNumber(v any) (int64, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

func fromMillisValue(v any) (int64, bool) {
	m, ok := v.(interface{ UnixMilli() int64 })
	if !ok {
		return 0, false
	}
	if t, isTime := v.(time.Time); isTime && t.IsZero() {
		return 0, false
	}
	return m.UnixMilli(), true
}

// fromTimestampObject reads serialized timestamps such as
// {"seconds": 1, "nanoseconds": 0} or {"_seconds": 1, "_nanoseconds": 0}.
func fromTimestampObject(v any) (int64, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	secs, ok := firstNumber(obj, "seconds", "_seconds")
	if !ok {
		return 0, false
	}
	nanos, _ := firstNumber(obj, "nanoseconds", "_nanoseconds")
	return int64(secs)*1000 + int64(nanos)/int64(time.Millisecond), true
}

func fromDateString(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func firstNumber(obj map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(obj[k]); ok {
			return f, true
		}
	}
	return 0, false
}
