// Package jsonv provides safe typed readers over a decoded JSON tree.
//
// Every accessor tolerates missing keys and type mismatches, returning the
// zero value (or a caller-supplied default) instead of failing. Numeric
// readers accept both float64 (the encoding/json decode type) and Go integer
// types, since test fixtures often build trees with untyped constants.
package jsonv

import "math"

// Object is a decoded JSON object
type Object = map[string]any

// Array is a decoded JSON array
type Array = []any

// String reads a string field, reporting presence
func String(obj Object, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// StringOr reads a string field with a default
func StringOr(obj Object, key, def string) string {
	if s, ok := String(obj, key); ok {
		return s
	}
	return def
}

// Float reads a numeric field as float64, reporting presence
func Float(obj Object, key string) (float64, bool) {
	v, ok := obj[key]
	if !ok {
		return 0, false
	}
	return asFloat(v)
}

// FloatOr reads a numeric field with a default
func FloatOr(obj Object, key string, def float64) float64 {
	if f, ok := Float(obj, key); ok {
		return f
	}
	return def
}

// Int reads a numeric field as int64, reporting presence.
// Non-integral values are rejected.
func Int(obj Object, key string) (int64, bool) {
	f, ok := Float(obj, key)
	if !ok {
		return 0, false
	}
	if f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// IntOr reads an integral field with a default
func IntOr(obj Object, key string, def int64) int64 {
	if n, ok := Int(obj, key); ok {
		return n
	}
	return def
}

// Bool reads a boolean field, reporting presence
func Bool(obj Object, key string) (bool, bool) {
	v, ok := obj[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// BoolOr reads a boolean field with a default
func BoolOr(obj Object, key string, def bool) bool {
	if b, ok := Bool(obj, key); ok {
		return b
	}
	return def
}

// OptBool reads a tri-state boolean: nil when the field is absent or not a
// boolean, a pointer to its value otherwise
func OptBool(obj Object, key string) *bool {
	if b, ok := Bool(obj, key); ok {
		return &b
	}
	return nil
}

// ArrayAt reads a nested array field
func ArrayAt(obj Object, key string) (Array, bool) {
	v, ok := obj[key]
	if !ok {
		return nil, false
	}
	a, ok := v.(Array)
	return a, ok
}

// Strings reads an array field, keeping only its string elements
func Strings(obj Object, key string) []string {
	arr, ok := ArrayAt(obj, key)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Arg reads a positional argument as an object; dispatch arguments arrive
// as a JSON array with the options object in a known slot
func Arg(args Array, i int) (Object, bool) {
	if i < 0 || i >= len(args) {
		return nil, false
	}
	o, ok := args[i].(Object)
	return o, ok
}

// ArgString reads a positional argument as a string
func ArgString(args Array, i int) (string, bool) {
	if i < 0 || i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
