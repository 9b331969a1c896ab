package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func toString(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// toInt converts a JSON-decoded number. Non-numeric values yield 0.
func toInt(value any) int {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// firstString returns the first event payload element as a trimmed string.
func firstString(data []any) string {
	if len(data) == 0 {
		return ""
	}
	return strings.TrimSpace(toString(data[0]))
}

// firstObject returns the first event payload element when it is a JSON object.
func firstObject(data []any) (map[string]any, bool) {
	if len(data) == 0 {
		return nil, false
	}
	obj, ok := data[0].(map[string]any)
	return obj, ok
}
