package filter

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const dateLayout = "2006-01-02"

// ParseFilters turns loosely typed filter values, as decoded from a JSON
// query parameter, into typed predicates. Inactive values (nil, "", empty
// arrays, empty objects and ranges with both bounds empty) are left out of the result.
func ParseFilters(raw map[string]any) (Filters, error) {
	out := make(Filters, len(raw))
	for id, v := range raw {
		pred, active, err := ParseValue(v)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", id, err)
		}
		if active {
			out[id] = pred
		}
	}
	return out, nil
}

// ParseQuery decodes a JSON object such as {"priority":["high","urgent"]}
// and parses it with ParseFilters. An empty string yields no filters.
func ParseQuery(raw string) (Filters, error) {
	if strings.TrimSpace(raw) == "" {
		return Filters{}, nil
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("invalid filters: %w", err)
	}
	return ParseFilters(values)
}

// ParseValue builds the predicate for a single filter value and reports
// whether the value is active at all
func ParseValue(v any) (Predicate, bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, false, nil
	case string:
		if t == "" {
			return nil, false, nil
		}
		return Equals{Value: t}, true, nil
	case bool:
		return Flag{Value: &t}, true, nil
	case *bool:
		if t == nil {
			return nil, false, nil
		}
		return Flag{Value: t}, true, nil
	case []any:
		if len(t) == 0 {
			return nil, false, nil
		}
		return OneOf{Values: t}, true, nil
	case map[string]any:
		return parseRange(t)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		if rv.Len() == 0 {
			return nil, false, nil
		}
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return OneOf{Values: values}, true, nil
	}
	return Equals{Value: v}, true, nil
}

func parseRange(m map[string]any) (Predicate, bool, error) {
	if len(m) == 0 {
		return nil, false, nil
	}
	_, hasMin := m["min"]
	_, hasMax := m["max"]
	_, hasStart := m["start"]
	_, hasEnd := m["end"]

	switch {
	case hasMin || hasMax:
		lo, err := optionalNumber(m["min"])
		if err != nil {
			return nil, false, fmt.Errorf("min: %w", err)
		}
		hi, err := optionalNumber(m["max"])
		if err != nil {
			return nil, false, fmt.Errorf("max: %w", err)
		}
		if lo == nil && hi == nil {
			return nil, false, nil
		}
		return NumberRange{Min: lo, Max: hi}, true, nil

	case hasStart || hasEnd:
		start, _, err := optionalTime(m["start"])
		if err != nil {
			return nil, false, fmt.Errorf("start: %w", err)
		}
		end, dateOnly, err := optionalTime(m["end"])
		if err != nil {
			return nil, false, fmt.Errorf("end: %w", err)
		}
		if start == nil && end == nil {
			return nil, false, nil
		}
		if end != nil && dateOnly {
			last := end.Add(24*time.Hour - time.Nanosecond)
			end = &last
		}
		return DateRange{Start: start, End: end}, true, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, false, fmt.Errorf("unsupported range with keys %v", keys)
}

func optionalNumber(v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fmt.Errorf("invalid number %v: %w", v, err)
	}
	return &f, nil
}

// optionalTime also reports whether the bound was given as a bare date
func optionalTime(v any) (*time.Time, bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, false, nil
	case time.Time:
		return &t, false, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, false, nil
		}
		if d, err := time.Parse(dateLayout, s); err == nil {
			return &d, true, nil
		}
		parsed, err := cast.ToTimeE(s)
		if err != nil {
			return nil, false, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return &parsed, false, nil
	}
	return nil, false, fmt.Errorf("invalid date %v", v)
}
