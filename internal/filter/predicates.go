package filter

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// Equals keeps items whose field equals Value exactly.
// Numbers compare numerically, everything else by its text form.
type Equals struct {
	Value any
}

func (p Equals) Match(value any) bool {
	return equalValues(value, normalize(p.Value))
}

// OneOf keeps items whose field equals any of Values
type OneOf struct {
	Values []any
}

func (p OneOf) Match(value any) bool {
	if value == nil {
		return false
	}
	for _, v := range p.Values {
		if equalValues(value, normalize(v)) {
			return true
		}
	}
	return false
}

// NumberRange keeps items whose field, coerced to a number, lies in
// [Min, Max]. A nil bound is unconstrained.
type NumberRange struct {
	Min *float64
	Max *float64
}

func (p NumberRange) Match(value any) bool {
	n, ok := toNumber(value)
	if !ok {
		return false
	}
	if p.Min != nil && n < *p.Min {
		return false
	}
	if p.Max != nil && n > *p.Max {
		return false
	}
	return true
}

// DateRange keeps items whose field, parsed as a time, lies in [Start, End].
// Both bounds are inclusive and a nil bound is unconstrained.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (p DateRange) Match(value any) bool {
	t, ok := toTime(value)
	if !ok {
		return false
	}
	if p.Start != nil && t.Before(*p.Start) {
		return false
	}
	if p.End != nil && t.After(*p.End) {
		return false
	}
	return true
}

// Flag keeps items whose boolean field equals Value.
// A nil Value places no constraint at all, it is not read as false.
type Flag struct {
	Value *bool
}

func (p Flag) Match(value any) bool {
	if p.Value == nil {
		return true
	}
	b, ok := toBool(value)
	return ok && b == *p.Value
}

// normalize dereferences pointers and reduces a field value to one of
// nil, string, bool, int64, uint64, float64 or time.Time
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}

	val := rv.Interface()
	if t, ok := val.(time.Time); ok {
		return t
	}
	if s, ok := val.(fmt.Stringer); ok {
		return s.String()
	}
	return val
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			return af == bf
		}
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := toTime(b)
		return ok && at.Equal(bt)
	}
	as, aok := toText(a)
	bs, bok := toText(b)
	return aok && bok && as == bs
}

// numeric only accepts values that already are numbers
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toNumber coerces numbers and numeric strings
func toNumber(v any) (float64, bool) {
	switch v.(type) {
	case nil, bool, time.Time:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if t == "" {
			return time.Time{}, false
		}
		parsed, err := cast.ToTimeE(t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		return parsed, err == nil
	}
	return false, false
}

func toText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case time.Time:
		return t.UTC().Format("2006-01-02"), true
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false
	}
	return s, true
}
