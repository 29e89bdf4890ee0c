// Package payload gives typed access to loosely-typed JSON payloads.
//
// Request bodies are decoded into map[string]any so that fields the service
// does not know about pass through untouched. Value wraps a single field and
// makes every coercion explicit.
package payload

import (
	"encoding/json"
	"iter"
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "other"
	}
}

// Value is one field of a payload, possibly absent.
type Value struct {
	raw     any
	present bool
}

// Of wraps an already extracted value. A nil v is a present null.
func Of(v any) Value {
	return Value{raw: v, present: true}
}

// Missing is the value of an absent key.
func Missing() Value {
	return Value{}
}

// Field returns m[key], or Missing when the key is absent or m is nil.
func Field(m map[string]any, key string) Value {
	v, ok := m[key]
	if !ok {
		return Missing()
	}
	return Of(v)
}

// Raw returns the underlying value, nil for missing or null.
func (v Value) Raw() any {
	return v.raw
}

func (v Value) Kind() Kind {
	if !v.present {
		return KindMissing
	}
	switch v.raw.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindList
	case map[string]any:
		return KindMap
	default:
		return KindOther
	}
}

// IsSet reports whether the field is present and not null.
func (v Value) IsSet() bool {
	return v.present && v.raw != nil
}

// AsNumber converts numbers and numeric strings. Booleans are not numbers.
func (v Value) AsNumber() (float64, bool) {
	var f float64
	switch n := v.raw.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NumberOr returns AsNumber, or def when the value is not a number.
func (v Value) NumberOr(def float64) float64 {
	if f, ok := v.AsNumber(); ok {
		return f
	}
	return def
}

// AsString returns strings as-is and formats numbers without trailing zeros.
func (v Value) AsString() (string, bool) {
	switch s := v.raw.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	}
	if v.Kind() == KindNumber {
		f, ok := v.AsNumber()
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// StringOr returns AsString, or def when the value is not a string or number.
func (v Value) StringOr(def string) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return def
}

// Truthy follows the usual dynamic-language truthiness: missing, null, false,
// zero, empty strings and empty collections are false.
func (v Value) Truthy() bool {
	switch v.Kind() {
	case KindMissing, KindNull:
		return false
	case KindBool:
		return v.raw.(bool)
	case KindNumber:
		f, ok := v.AsNumber()
		return ok && f != 0
	case KindString:
		return v.raw.(string) != ""
	case KindList:
		return len(v.raw.([]any)) > 0
	case KindMap:
		return len(v.raw.(map[string]any)) > 0
	default:
		return true
	}
}

// ParseBool returns def for missing or null values, booleans as-is, and
// otherwise whether the lower-cased string form is one of true, 1, yes, y, t.
func (v Value) ParseBool(def bool) bool {
	switch v.Kind() {
	case KindMissing, KindNull:
		return def
	case KindBool:
		return v.raw.(bool)
	}
	s, ok := v.AsString()
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "t":
		return true
	default:
		return false
	}
}

// AsMap returns the value as a JSON object.
func (v Value) AsMap() (map[string]any, bool) {
	m, ok := v.raw.(map[string]any)
	return m, ok
}

// AsList returns the value as a JSON array.
func (v Value) AsList() ([]any, bool) {
	l, ok := v.raw.([]any)
	return l, ok
}

// ParseBoolString applies ParseBool to a query string parameter, where the
// empty string stands for an absent parameter.
func ParseBoolString(s string, def bool) bool {
	if s == "" {
		return def
	}
	return Of(s).ParseBool(def)
}

// Maps yields the map entries of list with their original positions.
// Entries of any other kind are skipped without shifting later indexes.
func Maps(list []any) iter.Seq2[int, map[string]any] {
	return func(yield func(int, map[string]any) bool) {
		for i, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if !yield(i, m) {
				return
			}
		}
	}
}
