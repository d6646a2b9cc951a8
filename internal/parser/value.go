package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the dynamic type of a captured Value.
type Kind int

// Value kinds, in the order ParseValue attempts them.
const (
	KindInt Kind = iota
	KindFloat
	KindString
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is one captured group, typed by ParseValue.
// Raw always keeps the captured text.
type Value struct {
	Kind  Kind
	Raw   string
	Int   int64
	Float float64
}

// ParseValue types s as an integer, then a decimal, then falls back to a string.
// Non-finite decimals stay strings since they cannot be serialized.
func ParseValue(s string) Value {
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return Value{Kind: KindInt, Raw: s, Int: i, Float: float64(i)}
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Value{Kind: KindFloat, Raw: s, Float: f}
	}
	return Value{Kind: KindString, Raw: s}
}

// Text returns the captured text.
func (v Value) Text() string {
	return v.Raw
}

// AsInt converts v to an integer. Decimals are accepted only when integral.
func (v Value) AsInt() (int64, error) {
	switch v.Kind {
	case KindInt:
		return v.Int, nil
	case KindFloat:
		if v.Float == math.Trunc(v.Float) && math.Abs(v.Float) < 1<<53 {
			return int64(v.Float), nil
		}
	}
	return 0, fmt.Errorf("%w: %q is not an integer", errValueKind, v.Raw)
}

// AsFloat converts v to a float.
func (v Value) AsFloat() (float64, error) {
	switch v.Kind {
	case KindInt, KindFloat:
		return v.Float, nil
	}
	return 0, fmt.Errorf("%w: %q is not a number", errValueKind, v.Raw)
}

// MarshalJSON encodes numbers as JSON numbers and strings as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return []byte(strconv.FormatInt(v.Int, 10)), nil
	case KindFloat:
		return json.Marshal(v.Float)
	default:
		return json.Marshal(v.Raw)
	}
}
