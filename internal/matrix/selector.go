package matrix

import (
	"github.com/mrz1836/mqomctl/internal/errors"
)

// Selector is a user-facing token denoting a set of variants by prefix.
type Selector string

// SelectorAll selects every variant.
const SelectorAll Selector = "all"

// Vocabulary returns every valid selector: "all", then each category
// followed by its nested prefixes down to the full labels.
func Vocabulary() []string {
	out := []string{string(SelectorAll)}
	for _, c := range categories {
		cat := string(c.token)
		out = append(out, cat)
		for _, f := range fields {
			cf := cat + "_" + string(f.token)
			out = append(out, cf)
			for _, t := range tradeOffs {
				cft := cf + "_" + string(t.token)
				out = append(out, cft)
				for _, r := range rounds {
					out = append(out, cft+"_"+string(r.token))
				}
			}
		}
	}
	return out
}

// vocabulary is the closed selector set.
//
//nolint:gochecknoglobals // Immutable lookup table
var vocabulary = buildVocabulary()

func buildVocabulary() map[Selector]struct{} {
	words := Vocabulary()
	m := make(map[Selector]struct{}, len(words))
	for _, w := range words {
		m[Selector(w)] = struct{}{}
	}
	return m
}

// ParseSelector validates s against the selector vocabulary.
func ParseSelector(s string) (Selector, error) {
	sel := Selector(s)
	if _, ok := vocabulary[sel]; !ok {
		return "", errors.Wrapf(errors.ErrInvalidSelector, "%q", s)
	}
	return sel, nil
}

// ParseSelectors validates every token, failing on the first invalid one.
func ParseSelectors(args []string) ([]Selector, error) {
	out := make([]Selector, 0, len(args))
	for _, a := range args {
		sel, err := ParseSelector(a)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

// Expand returns, in enumeration order, every variant selected by at least
// one selector. A variant is selected when "all" is present or when any of
// its four prefixes is. Selectors that match nothing are not an error.
func Expand(selectors []Selector) []Variant {
	set := make(map[Selector]struct{}, len(selectors))
	for _, s := range selectors {
		set[s] = struct{}{}
	}
	_, includeAll := set[SelectorAll]

	var out []Variant
	for _, v := range All() {
		if includeAll || matchesAny(v, set) {
			out = append(out, v)
		}
	}
	return out
}

// Matches reports whether sel selects v.
func (sel Selector) Matches(v Variant) bool {
	if sel == SelectorAll {
		return true
	}
	for _, p := range v.prefixes() {
		if p == sel {
			return true
		}
	}
	return false
}

func matchesAny(v Variant, set map[Selector]struct{}) bool {
	for _, p := range v.prefixes() {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}
