package nlu

import (
	"encoding/json"
	"strconv"
	"strings"
)

// The model is free to send any JSON type for any field, so every getter is
// lenient: a wrong type is reported as absent rather than failing the message.

func getString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

func getBool(m map[string]any, key string) (bool, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, false
	}
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}

func getInt(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	var s string
	switch val := v.(type) {
	case json.Number:
		s = val.String()
	case float64:
		return int(val), val == float64(int(val))
	case string:
		s = strings.TrimSpace(val)
	default:
		return 0, false
	}
	n, err := strconv.Atoi(foldNumber(s))
	if err != nil {
		f, ferr := strconv.ParseFloat(foldNumber(s), 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}

func getObjects(m map[string]any, key string) []map[string]any {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		// A single object where a list was expected.
		if obj, ok := v.(map[string]any); ok {
			return []map[string]any{obj}
		}
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// firstString returns the first non-empty string among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := getString(m, k); s != "" {
			return s
		}
	}
	return ""
}
