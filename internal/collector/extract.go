package collector

import (
	"fmt"
	"strconv"
	"strings"
)

// MissingFieldError reports a place record that lacks a field normalization
// needs, or carries it in an unusable shape.
type MissingFieldError struct {
	Field  string
	Reason string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s: %s", e.Field, e.Reason)
}

// extractCategory pulls the id and name of the first entry in the row's
// categories list. The API orders categories most-relevant first; the
// dataset keeps only that one.
func extractCategory(row Row) (int, string, error) {
	raw, ok := row["categories"]
	if !ok {
		return 0, "", &MissingFieldError{Field: "categories", Reason: "key absent"}
	}

	list, ok := asObjectList(raw)
	if !ok {
		return 0, "", &MissingFieldError{Field: "categories", Reason: "not a list of objects"}
	}
	if len(list) == 0 {
		return 0, "", &MissingFieldError{Field: "categories", Reason: "empty list"}
	}

	first := list[0]
	code, ok := toNumber(first["id"])
	if !ok {
		return 0, "", &MissingFieldError{Field: "categories[0].id", Reason: "not numeric"}
	}
	name, ok := first["name"].(string)
	if !ok {
		return 0, "", &MissingFieldError{Field: "categories[0].name", Reason: "not a string"}
	}

	return code, name, nil
}

// extractAddress pulls location.formatted_address.
func extractAddress(row Row) (string, error) {
	raw, ok := row["location"]
	if !ok {
		return "", &MissingFieldError{Field: "location", Reason: "key absent"}
	}

	loc, ok := raw.(map[string]any)
	if !ok {
		return "", &MissingFieldError{Field: "location", Reason: "not an object"}
	}

	addr, ok := loc["formatted_address"].(string)
	if !ok {
		return "", &MissingFieldError{Field: "location.formatted_address", Reason: "absent or not a string"}
	}

	return addr, nil
}

// extractPosition pulls geocodes.main.latitude and .longitude.
func extractPosition(row Row) (float64, float64, error) {
	raw, ok := row["geocodes"]
	if !ok {
		return 0, 0, &MissingFieldError{Field: "geocodes", Reason: "key absent"}
	}

	geo, ok := raw.(map[string]any)
	if !ok {
		return 0, 0, &MissingFieldError{Field: "geocodes", Reason: "not an object"}
	}

	main, ok := geo["main"].(map[string]any)
	if !ok {
		return 0, 0, &MissingFieldError{Field: "geocodes.main", Reason: "absent or not an object"}
	}

	lat, ok := toFloat(main["latitude"])
	if !ok {
		return 0, 0, &MissingFieldError{Field: "geocodes.main.latitude", Reason: "not numeric"}
	}
	lon, ok := toFloat(main["longitude"])
	if !ok {
		return 0, 0, &MissingFieldError{Field: "geocodes.main.longitude", Reason: "not numeric"}
	}

	return lat, lon, nil
}

// asObjectList accepts the two shapes a JSON array of objects shows up as:
// []any straight off the decoder, []map[string]any from hand-built rows.
func asObjectList(v any) ([]map[string]any, bool) {
	switch list := v.(type) {
	case []map[string]any:
		return list, true
	case []any:
		out := make([]map[string]any, len(list))
		for i, e := range list {
			obj, ok := e.(map[string]any)
			if !ok {
				return nil, false
			}
			out[i] = obj
		}
		return out, true
	default:
		return nil, false
	}
}

func toNumber(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		cleaned := strings.TrimSpace(n)
		i, err := strconv.Atoi(cleaned)
		if err != nil {
			f, err := strconv.ParseFloat(cleaned, 64)
			if err != nil {
				return 0, false
			}
			return int(f), true
		}
		return i, true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
