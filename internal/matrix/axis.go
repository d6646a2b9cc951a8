// Package matrix enumerates the MQOM2 parameter matrix.
//
// A variant is one point of the Cartesian product of four axes:
// security category, base field, trade-off and round count. Each axis
// value maps to exactly one integer consumed by the build as a compiler
// definition.
//
// Import rules:
//   - CAN import: internal/constants, internal/errors
//   - MUST NOT import: any other internal package
package matrix

import "strconv"

// Category is the security-category axis.
type Category string

// Field is the base-field axis.
type Field string

// TradeOff is the signature-size versus speed axis.
type TradeOff string

// Rounds is the round-count axis.
type Rounds string

// Security categories.
const (
	Cat1 Category = "cat1"
	Cat3 Category = "cat3"
	Cat5 Category = "cat5"
)

// Base fields.
const (
	GF2   Field = "gf2"
	GF16  Field = "gf16"
	GF256 Field = "gf256"
)

// Trade-offs.
const (
	Short TradeOff = "short"
	Fast  TradeOff = "fast"
)

// Round counts.
const (
	R3 Rounds = "r3"
	R5 Rounds = "r5"
)

// Axis names as they appear in compiler definitions (-DMQOM2_PARAM_<name>=).
const (
	AxisSecurity  = "SECURITY"
	AxisBaseField = "BASE_FIELD"
	AxisTradeOff  = "TRADEOFF"
	AxisRounds    = "NBROUNDS"
)

// axisEntry pairs an axis token with its build value.
type axisEntry[T ~string] struct {
	token T
	value int
}

// Axis tables in enumeration order.
//
//nolint:gochecknoglobals // Immutable lookup tables
var (
	categories = []axisEntry[Category]{{Cat1, 128}, {Cat3, 192}, {Cat5, 256}}
	fields     = []axisEntry[Field]{{GF2, 1}, {GF16, 4}, {GF256, 8}}
	tradeOffs  = []axisEntry[TradeOff]{{Short, 1}, {Fast, 0}}
	rounds     = []axisEntry[Rounds]{{R3, 3}, {R5, 5}}
)

func lookup[T ~string](table []axisEntry[T], token T) (int, bool) {
	for _, e := range table {
		if e.token == token {
			return e.value, true
		}
	}
	return 0, false
}

func tokens[T ~string](table []axisEntry[T]) []T {
	out := make([]T, len(table))
	for i, e := range table {
		out[i] = e.token
	}
	return out
}

// Categories returns the security categories in enumeration order.
func Categories() []Category { return tokens(categories) }

// Fields returns the base fields in enumeration order.
func Fields() []Field { return tokens(fields) }

// TradeOffs returns the trade-offs in enumeration order.
func TradeOffs() []TradeOff { return tokens(tradeOffs) }

// RoundCounts returns the round counts in enumeration order.
func RoundCounts() []Rounds { return tokens(rounds) }

// SecurityBits returns the security level in bits, or 0 for an unknown category.
func (c Category) SecurityBits() int {
	v, _ := lookup(categories, c)
	return v
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := lookup(categories, c)
	return ok
}

// Value returns the BASE_FIELD build value, or 0 for an unknown field.
func (f Field) Value() int {
	v, _ := lookup(fields, f)
	return v
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	_, ok := lookup(fields, f)
	return ok
}

// Value returns the TRADEOFF build value.
func (t TradeOff) Value() int {
	v, _ := lookup(tradeOffs, t)
	return v
}

// Valid reports whether t is a known trade-off.
func (t TradeOff) Valid() bool {
	_, ok := lookup(tradeOffs, t)
	return ok
}

// Value returns the NBROUNDS build value.
func (r Rounds) Value() int {
	v, _ := lookup(rounds, r)
	return v
}

// Valid reports whether r is a known round count.
func (r Rounds) Valid() bool {
	_, ok := lookup(rounds, r)
	return ok
}

func itoa(v int) string { return strconv.Itoa(v) }
