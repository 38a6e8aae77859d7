package domain

import (
	"encoding/json"
	"strconv"
)

// ValueType tags which variant a Value holds.
type ValueType int

const (
	TypeText ValueType = iota
	TypeInteger
	TypeFloat
)

func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	default:
		return "text"
	}
}

// Value is a decoded field value: an integer, a float, or the raw text when
// the field is metadata, unknown, or failed to decode. The zero Value is
// empty text.
type Value struct {
	typ ValueType
	i   int64
	f   float64
	s   string
}

// IntValue wraps an integer.
func IntValue(v int64) Value { return Value{typ: TypeInteger, i: v} }

// FloatValue wraps a float.
func FloatValue(v float64) Value { return Value{typ: TypeFloat, f: v} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{typ: TypeText, s: s} }

// Type returns the variant held by v.
func (v Value) Type() ValueType { return v.typ }

// IsNumeric reports whether v holds an integer or a float.
func (v Value) IsNumeric() bool { return v.typ == TypeInteger || v.typ == TypeFloat }

// Int returns the integer held by v.
func (v Value) Int() (int64, bool) {
	if v.typ != TypeInteger {
		return 0, false
	}
	return v.i, true
}

// Float returns v as a float64 when it holds either numeric variant.
func (v Value) Float() (float64, bool) {
	switch v.typ {
	case TypeFloat:
		return v.f, true
	case TypeInteger:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Text returns the string form of v.
func (v Value) Text() string {
	switch v.typ {
	case TypeInteger:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return v.s
	}
}

func (v Value) String() string { return v.Text() }

// Any unwraps v into an int64, float64 or string.
func (v Value) Any() any {
	switch v.typ {
	case TypeInteger:
		return v.i
	case TypeFloat:
		return v.f
	default:
		return v.s
	}
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.typ {
	case TypeInteger:
		return strconv.AppendInt(nil, v.i, 10), nil
	case TypeFloat:
		return json.Marshal(v.f)
	default:
		return json.Marshal(v.s)
	}
}
