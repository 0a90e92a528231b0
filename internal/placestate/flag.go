package placestate

import (
	"encoding/json"
	"strings"
)

// NormalizeFlag turns the truthy-like values found in stored records into a bool.
// Numbers are true only when equal to 1; strings only for "yes", "true" or "1".
func NormalizeFlag(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "1":
			return true
		}
		return false
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 1
	}
	if f, ok := toFloat(v); ok {
		return f == 1
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
