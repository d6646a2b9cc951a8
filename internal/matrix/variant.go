package matrix

import (
	"strings"

	"github.com/mrz1836/mqomctl/internal/constants"
	"github.com/mrz1836/mqomctl/internal/errors"
)

// Variant is one concrete point of the parameter matrix.
// It is a comparable value type and is never mutated after construction.
type Variant struct {
	Category Category `json:"category" yaml:"category"`
	Field    Field    `json:"field" yaml:"field"`
	TradeOff TradeOff `json:"tradeoff" yaml:"tradeoff"`
	Rounds   Rounds   `json:"variant" yaml:"variant"`
}

// Label joins the four axis tokens with '_'. It uniquely identifies the
// variant and names its artifacts and output directory.
func (v Variant) Label() string {
	return string(v.Category) + "_" + string(v.Field) + "_" + string(v.TradeOff) + "_" + string(v.Rounds)
}

// String implements fmt.Stringer.
func (v Variant) String() string { return v.Label() }

// Valid reports whether every axis holds a known value.
func (v Variant) Valid() bool {
	return v.Category.Valid() && v.Field.Valid() && v.TradeOff.Valid() && v.Rounds.Valid()
}

// Defines returns the four compiler definitions encoding the variant.
// Security is derived from the category alone.
func (v Variant) Defines() []string {
	return []string{
		define(AxisSecurity, v.Category.SecurityBits()),
		define(AxisBaseField, v.Field.Value()),
		define(AxisTradeOff, v.TradeOff.Value()),
		define(AxisRounds, v.Rounds.Value()),
	}
}

// Flags builds the EXTRA_CFLAGS value for the variant: every token of base
// that defines an MQOM2 parameter is dropped and the variant's own four
// definitions are appended.
func (v Variant) Flags(base string) string {
	kept := make([]string, 0, 8)
	for _, tok := range strings.Fields(base) {
		if strings.Contains(tok, constants.ParamDefinePrefix) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(append(kept, v.Defines()...), " ")
}

// prefixes returns the selectors that subsume v, coarsest first, ending
// with the exact label.
func (v Variant) prefixes() [4]Selector {
	c := string(v.Category)
	cf := c + "_" + string(v.Field)
	cft := cf + "_" + string(v.TradeOff)
	return [4]Selector{Selector(c), Selector(cf), Selector(cft), Selector(v.Label())}
}

func define(axis string, value int) string {
	return constants.ParamDefinePrefix + axis + "=" + itoa(value)
}

// All returns the 36 variants in enumeration order
// (category, then field, then trade-off, then rounds).
func All() []Variant {
	out := make([]Variant, 0, len(categories)*len(fields)*len(tradeOffs)*len(rounds))
	for _, c := range categories {
		for _, f := range fields {
			for _, t := range tradeOffs {
				for _, r := range rounds {
					out = append(out, Variant{Category: c.token, Field: f.token, TradeOff: t.token, Rounds: r.token})
				}
			}
		}
	}
	return out
}

// Lookup resolves a fully-qualified label to its variant.
func Lookup(label string) (Variant, error) {
	for _, v := range All() {
		if v.Label() == label {
			return v, nil
		}
	}
	return Variant{}, errors.Wrapf(errors.ErrUnknownVariant, "%q", label)
}
