// Package parser turns the textual output of the external executables into
// structured records.
//
// The benchmark grammar is a declarative table: one FieldSpec per record
// field, each anchored to a whole line. The massif parser is a small state
// machine over snapshot blocks.
package parser

import (
	"regexp"
	"sync"
)

// GrammarVersion identifies the benchmark output format the table below
// recognizes. Bump it whenever a pattern changes.
const GrammarVersion = 1

// FieldSpec describes one record field: where it comes from and how the
// captured groups are assigned.
type FieldSpec struct {
	// Key is the field name in the serialized record.
	Key string
	// Pattern is matched against whole lines.
	Pattern string
	// Kind is the declared kind of every captured group after conversion.
	Kind Kind
	// Groups is the number of capture groups.
	Groups int
	// Required fields fail the parse when no line matches.
	Required bool

	set  func(r *Record, vals []Value) error
	once sync.Once
	re   *regexp.Regexp
}

// Regexp returns the compiled, fully anchored pattern.
func (s *FieldSpec) Regexp() *regexp.Regexp {
	s.once.Do(func() {
		s.re = regexp.MustCompile(`^(?:` + s.Pattern + `)$`)
	})
	return s.re
}

// Match returns the typed groups of the first line matching the pattern.
// An unmatched optional group yields an empty string value.
func (s *FieldSpec) Match(lines []string) ([]Value, bool) {
	re := s.Regexp()
	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		vals := make([]Value, len(m)-1)
		for i, g := range m[1:] {
			vals[i] = ParseValue(g)
		}
		return vals, true
	}
	return nil, false
}

func spec(key, pattern string, kind Kind, groups int, set func(*Record, []Value) error) *FieldSpec {
	return &FieldSpec{Key: key, Pattern: pattern, Kind: kind, Groups: groups, Required: true, set: set}
}

//nolint:gochecknoglobals // Immutable grammar tables
var (
	requiredFields = []*FieldSpec{
		spec("name", `\[API\] Algo Name: (.+)`, KindString, 1, func(r *Record, v []Value) error {
			r.Name = v[0].Text()
			return nil
		}),
		spec("version", `\[API\] Algo Version: (.+)`, KindString, 1, func(r *Record, v []Value) error {
			r.Version = v[0].Text()
			return nil
		}),
		spec("instruction_sets", `Instruction Sets:\s*(\S.+)?`, KindString, 1, func(r *Record, v []Value) error {
			r.InstructionSets = v[0].Text()
			return nil
		}),
		spec("debug", `Debug: (.+)`, KindString, 1, func(r *Record, v []Value) error {
			r.Debug = v[0].Text()
			return nil
		}),
		spec("correctness", `Correctness: (\d+)/(\d+)`, KindInt, 2, func(r *Record, v []Value) error {
			score, err := v[0].AsInt()
			if err != nil {
				return err
			}
			total, err := v[1].AsInt()
			if err != nil {
				return err
			}
			r.Correctness = int(score)
			r.CorrectnessTotal = int(total)
			return nil
		}),
		spec("keygen", ` - Key Gen: (.+) ms \(std=(.+)\)`, KindFloat, 2, setPair(func(r *Record) *Pair { return &r.KeyGen })),
		spec("sign", ` - Sign:    (.+) ms \(std=(.+)\)`, KindFloat, 2, setPair(func(r *Record) *Pair { return &r.Sign })),
		spec("verif", ` - Verify:  (.+) ms \(std=(.+)\)`, KindFloat, 2, setPair(func(r *Record) *Pair { return &r.Verif })),
		spec("pk_size", ` - PK size: (.+) B`, KindInt, 1, setInt(func(r *Record) *int64 { return &r.PKSize })),
		spec("sk_size", ` - SK size: (.+) B`, KindInt, 1, setInt(func(r *Record) *int64 { return &r.SKSize })),
		spec("sig_size_max", ` - Signature size \(MAX\): (.+) B`, KindInt, 1, setInt(func(r *Record) *int64 { return &r.SigSizeMax })),
		spec("sig_size", ` - Signature size: (.+) B \(std=(.+)\)`, KindFloat, 2, setPair(func(r *Record) *Pair { return &r.SigSize })),
	}

	cyclesFields = []*FieldSpec{
		optional(` - Key Gen: (.+) cycles`, "keygen_cycles"),
		optional(` - Sign:    (.+) cycles`, "sign_cycles"),
		optional(` - Verify:  (.+) cycles`, "verif_cycles"),
	}

	detailFamilies = []DetailFamily{
		{Name: "blc_commit", Phases: []DetailPhase{
			{"total", `BLC.Commit`},
			{"expand_trees", `\[BLC.Commit\] Expand Trees`},
			{"seed_commit", `\[BLC.Commit\] Seed Commit`},
			{"prg", `\[BLC.Commit\] PRG`},
			{"xof", `\[BLC.Commit\] XOF`},
			{"arithm", `\[BLC.Commit\] Arithm`},
		}},
		{Name: "piop_compute", Phases: []DetailPhase{
			{"total", `PIOP.Compute`},
			{"expand_mq", `\[PIOP.Compute\] ExpandMQ`},
			{"expand_batching_mat", `\[PIOP.Compute\] Expand Batching Mat`},
			{"matrix_mult_ext", `\[PIOP.Compute\] Matrix Mul Ext`},
			{"compute_t1", `\[PIOP.Compute\] Compute t1`},
			{"compute_p_zi", `\[PIOP.Compute\] Compute P_zi`},
			{"batch_and_mask", `\[PIOP.Compute\] Batch and Mask`},
		}},
		{Name: "sample_challenge", Phases: []DetailPhase{
			{"total", `Sample Challenge`},
		}},
		{Name: "blc_open", Phases: []DetailPhase{
			{"total", `BLC.Open`},
		}},
	}
)

func optional(pattern, key string) *FieldSpec {
	return &FieldSpec{Key: key, Pattern: pattern, Kind: KindFloat, Groups: 1}
}

func setPair(field func(*Record) *Pair) func(*Record, []Value) error {
	return func(r *Record, v []Value) error {
		mean, err := v[0].AsFloat()
		if err != nil {
			return err
		}
		std, err := v[1].AsFloat()
		if err != nil {
			return err
		}
		*field(r) = Pair{Mean: mean, Std: std}
		return nil
	}
}

func setInt(field func(*Record) *int64) func(*Record, []Value) error {
	return func(r *Record, v []Value) error {
		n, err := v[0].AsInt()
		if err != nil {
			return err
		}
		*field(r) = n
		return nil
	}
}

// DetailPhase is one sub-phase line of a detail family.
type DetailPhase struct {
	Name  string
	Label string
}

// DetailFamily is a group of sub-phase timings that is recorded all or nothing.
type DetailFamily struct {
	Name   string
	Phases []DetailPhase
}

// Key returns the record key of phase p in family f.
func (f DetailFamily) Key(p DetailPhase) string {
	return "detailed_" + f.Name + "_" + p.Name
}

// spec returns the line pattern of one detail phase. The captured text,
// e.g. "0.42 ms (123456", carries both the millisecond and the cycle figure.
func (p DetailPhase) spec() *FieldSpec {
	return &FieldSpec{Key: p.Name, Pattern: `.*- ` + p.Label + `: (.+) cycles\)`, Kind: KindString, Groups: 1}
}

// Grammar returns the required field table in evaluation order.
func Grammar() []*FieldSpec {
	return append([]*FieldSpec(nil), requiredFields...)
}

// CyclesGrammar returns the optional cycle-count fields.
func CyclesGrammar() []*FieldSpec {
	return append([]*FieldSpec(nil), cyclesFields...)
}

// DetailFamilies returns the optional sub-phase families.
func DetailFamilies() []DetailFamily {
	return append([]DetailFamily(nil), detailFamilies...)
}

// Field returns the required field spec with the given key.
func Field(key string) (*FieldSpec, bool) {
	for _, s := range requiredFields {
		if s.Key == key {
			return s, true
		}
	}
	return nil, false
}
