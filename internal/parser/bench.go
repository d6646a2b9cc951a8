package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
)

var errValueKind = errors.New("unexpected value kind")

// ParseError reports a required field that could not be extracted.
type ParseError struct {
	Field   string
	Pattern string
	Reason  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: field %q: %s", mqerrors.ErrParse, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: field %q: no line matches %s", mqerrors.ErrParse, e.Field, e.Pattern)
}

// Unwrap returns ErrParse.
func (e *ParseError) Unwrap() error {
	return mqerrors.ErrParse
}

// Pair is a (mean, std) measurement. It serializes as a two element array.
type Pair struct {
	Mean float64
	Std  float64
}

// MarshalJSON implements json.Marshaler.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Mean, p.Std})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var arr [2]float64
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	p.Mean, p.Std = arr[0], arr[1]
	return nil
}

// Cycles holds the optional per-operation cycle counts.
type Cycles struct {
	KeyGen float64
	Sign   float64
	Verif  float64
}

// MemoryPeaks holds the peak memory, in bytes, of the three probes.
type MemoryPeaks struct {
	KeyGen int64 `json:"keygen"`
	Sign   int64 `json:"sign"`
	Verif  int64 `json:"verif"`
}

// Record is one parsed benchmark run. The schema is fixed; Path,
// Compilation, Timestamp and Memory are filled in by the caller.
type Record struct {
	Path             string
	Name             string
	Version          string
	InstructionSets  string
	Compilation      string
	Debug            string
	Correctness      int
	CorrectnessTotal int
	KeyGen           Pair
	Sign             Pair
	Verif            Pair
	PKSize           int64
	SKSize           int64
	SigSizeMax       int64
	SigSize          Pair
	Timestamp        float64

	// Cycles is nil unless all three cycle lines were found.
	Cycles *Cycles
	// Details maps detailed_<family>_<phase> to (ms, cycles). A family is
	// either fully present or absent.
	Details map[string]Pair
	// Memory is nil unless memory profiling ran.
	Memory *MemoryPeaks
}

// recordJSON fixes the key order of the serialized record.
type recordJSON struct {
	Path            string       `json:"path"`
	Name            string       `json:"name"`
	Version         string       `json:"version"`
	InstructionSets string       `json:"instruction_sets"`
	Compilation     string       `json:"compilation"`
	Debug           string       `json:"debug"`
	Correctness     int          `json:"correctness"`
	KeyGen          Pair         `json:"keygen"`
	Sign            Pair         `json:"sign"`
	Verif           Pair         `json:"verif"`
	PKSize          int64        `json:"pk_size"`
	SKSize          int64        `json:"sk_size"`
	SigSizeMax      int64        `json:"sig_size_max"`
	SigSize         Pair         `json:"sig_size"`
	Timestamp       float64      `json:"timestamp"`
	KeyGenCycles    *float64     `json:"keygen_cycles,omitempty"`
	SignCycles      *float64     `json:"sign_cycles,omitempty"`
	VerifCycles     *float64     `json:"verif_cycles,omitempty"`
	Memory          *MemoryPeaks `json:"memory,omitempty"`
}

// MarshalJSON flattens the record into one JSON object. Detail keys follow
// the fixed fields in sorted order.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		Path:            r.Path,
		Name:            r.Name,
		Version:         r.Version,
		InstructionSets: r.InstructionSets,
		Compilation:     r.Compilation,
		Debug:           r.Debug,
		Correctness:     r.Correctness,
		KeyGen:          r.KeyGen,
		Sign:            r.Sign,
		Verif:           r.Verif,
		PKSize:          r.PKSize,
		SKSize:          r.SKSize,
		SigSizeMax:      r.SigSizeMax,
		SigSize:         r.SigSize,
		Timestamp:       r.Timestamp,
		Memory:          r.Memory,
	}
	if r.Cycles != nil {
		out.KeyGenCycles = &r.Cycles.KeyGen
		out.SignCycles = &r.Cycles.Sign
		out.VerifCycles = &r.Cycles.Verif
	}

	base, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if len(r.Details) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(r.Details))
	for k := range r.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for _, k := range keys {
		val, err := json.Marshal(r.Details[k])
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SplitLines splits executable output into lines, dropping the carriage
// returns some executables emit.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// ParseBenchmark extracts a Record from benchmark output.
//
// Every required field must match some line, otherwise a *ParseError is
// returned. When the correctness counter differs from repetitions the
// record is returned together with an error wrapping ErrCorrectnessMismatch.
// Optional groups are attempted only after every required field succeeded.
func ParseBenchmark(text string, repetitions int) (*Record, error) {
	lines := SplitLines(text)
	rec := &Record{}

	for _, s := range requiredFields {
		vals, ok := s.Match(lines)
		if !ok {
			return nil, &ParseError{Field: s.Key, Pattern: s.Pattern}
		}
		if err := s.set(rec, vals); err != nil {
			return nil, &ParseError{Field: s.Key, Pattern: s.Pattern, Reason: err.Error()}
		}
	}

	rec.Cycles = parseCycles(lines)
	rec.Details = parseDetails(lines)

	if rec.Correctness != repetitions || rec.CorrectnessTotal != repetitions {
		return rec, fmt.Errorf("%w: %d/%d, expected %d", mqerrors.ErrCorrectnessMismatch,
			rec.Correctness, rec.CorrectnessTotal, repetitions)
	}
	return rec, nil
}

func parseCycles(lines []string) *Cycles {
	vals := make([]float64, len(cyclesFields))
	for i, s := range cyclesFields {
		v, ok := s.Match(lines)
		if !ok {
			return nil
		}
		f, err := v[0].AsFloat()
		if err != nil {
			return nil
		}
		vals[i] = f
	}
	return &Cycles{KeyGen: vals[0], Sign: vals[1], Verif: vals[2]}
}

func parseDetails(lines []string) map[string]Pair {
	var out map[string]Pair
	for _, fam := range detailFamilies {
		got, ok := parseFamily(fam, lines)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]Pair)
		}
		for k, v := range got {
			out[k] = v
		}
	}
	return out
}

func parseFamily(fam DetailFamily, lines []string) (map[string]Pair, bool) {
	got := make(map[string]Pair, len(fam.Phases))
	for _, p := range fam.Phases {
		vals, ok := p.spec().Match(lines)
		if !ok {
			return nil, false
		}
		pair, err := SplitDetail(vals[0].Text())
		if err != nil {
			return nil, false
		}
		got[fam.Key(p)] = pair
	}
	return got, true
}

// SplitDetail splits a captured detail figure such as "0.42 ms (123456"
// into its millisecond and cycle components.
func SplitDetail(s string) (Pair, error) {
	msPart, _, found := strings.Cut(s, "ms")
	if !found {
		return Pair{}, fmt.Errorf("%w: %q has no ms figure", errValueKind, s)
	}
	_, cyclesPart, found := strings.Cut(s, "(")
	if !found {
		return Pair{}, fmt.Errorf("%w: %q has no cycle figure", errValueKind, s)
	}
	ms, err := strconv.ParseFloat(strings.TrimSpace(msPart), 64)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %q", errValueKind, s)
	}
	cycles, err := strconv.ParseFloat(strings.TrimSpace(cyclesPart), 64)
	if err != nil {
		return Pair{}, fmt.Errorf("%w: %q", errValueKind, s)
	}
	return Pair{Mean: ms, Std: cycles}, nil
}
