package provider

import (
	"math"
	"strconv"
)

// ExtractInt normalizes a numeric value from various API response formats.
//
// SportMonks nests values in objects like {"goals": 2, "participant": "home"}
// or {"total": 15}; other providers return flat numbers or numeric strings.
// ok is false when no integer can be extracted.
func ExtractInt(val any) (int, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
		return 0, false
	case map[string]any:
		for _, key := range []string{"goals", "total", "all", "count"} {
			if inner, exists := v[key]; exists && inner != nil {
				return ExtractInt(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
}
