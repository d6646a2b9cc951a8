package parser

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Snapshot is one memory sample from a massif output file.
// Absent measurements are nil and contribute nothing to Total.
type Snapshot struct {
	Index      int    `json:"snapshot"`
	Time       int64  `json:"time"`
	HeapB      *int64 `json:"mem_heap_B,omitempty"`
	HeapExtraB *int64 `json:"mem_heap_extra_B,omitempty"`
	StacksB    *int64 `json:"mem_stacks_B,omitempty"`
	HeapTree   string `json:"heap_tree,omitempty"`
	Total      int64  `json:"total"`
}

//nolint:gochecknoglobals // Compiled once
var (
	massifHeader = regexp.MustCompile(`^snapshot=(\d+)$`)
	massifFields = []struct {
		re  *regexp.Regexp
		set func(s *Snapshot, raw string)
	}{
		{regexp.MustCompile(`^time=(\d+)$`), func(s *Snapshot, raw string) { s.Time = atoi64(raw) }},
		{regexp.MustCompile(`^mem_heap_B=(\d+)$`), func(s *Snapshot, raw string) { s.HeapB = ptr(atoi64(raw)) }},
		{regexp.MustCompile(`^mem_heap_extra_B=(\d+)$`), func(s *Snapshot, raw string) { s.HeapExtraB = ptr(atoi64(raw)) }},
		{regexp.MustCompile(`^mem_stacks_B=(\d+)$`), func(s *Snapshot, raw string) { s.StacksB = ptr(atoi64(raw)) }},
		{regexp.MustCompile(`^heap_tree=(.*)$`), func(s *Snapshot, raw string) { s.HeapTree = raw }},
	}
)

// maxMassifLine bounds a single line; detailed heap trees can be long.
const maxMassifLine = 4 << 20

// ParseMassif reads a massif output file into snapshots in file order.
func ParseMassif(r io.Reader) ([]Snapshot, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxMassifLine)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ParseMassifLines(lines), nil
}

// ParseMassifLines parses massif output already split into lines.
//
// A snapshot=N header flushes the snapshot in progress and starts a new
// one; the last snapshot is flushed at end of input. Lines before the
// first header and lines matching no known field are ignored.
func ParseMassifLines(lines []string) []Snapshot {
	var (
		out     []Snapshot
		current *Snapshot
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Total = sumPresent(current.HeapB, current.HeapExtraB, current.StacksB)
		out = append(out, *current)
		current = nil
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if m := massifHeader.FindStringSubmatch(line); m != nil {
			flush()
			current = &Snapshot{Index: int(atoi64(m[1]))}
			continue
		}
		if current == nil {
			continue
		}
		for _, f := range massifFields {
			if m := f.re.FindStringSubmatch(line); m != nil {
				f.set(current, m[1])
				break
			}
		}
	}
	flush()

	return out
}

// Peak returns the snapshot with the largest Total. The first one wins on
// ties. ok is false for an empty series.
func Peak(snapshots []Snapshot) (peak Snapshot, ok bool) {
	for i, s := range snapshots {
		if i == 0 || s.Total > peak.Total {
			peak = s
		}
	}
	return peak, len(snapshots) > 0
}

func sumPresent(vals ...*int64) int64 {
	var total int64
	for _, v := range vals {
		if v != nil {
			total += *v
		}
	}
	return total
}

// atoi64 parses a \d+ capture; overflow saturates to zero.
func atoi64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func ptr[T any](v T) *T { return &v }
