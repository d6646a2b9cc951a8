// Package profiler runs the memory probes and the leak checker under valgrind.
package profiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/mqomctl/internal/build"
	"github.com/mrz1836/mqomctl/internal/command"
	"github.com/mrz1836/mqomctl/internal/constants"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/matrix"
	"github.com/mrz1836/mqomctl/internal/parser"
)

// Operation is a profiled primitive.
type Operation string

// Profiled primitives, in probe order.
const (
	OpKeygen Operation = "keygen"
	OpSign   Operation = "sign"
	OpOpen   Operation = "open"
)

// Operations returns the probes in the order they must run: sign reads the
// keys written by keygen and open reads the signature written by sign.
func Operations() []Operation {
	return []Operation{OpKeygen, OpSign, OpOpen}
}

func (op Operation) artifact() build.Artifact {
	switch op {
	case OpKeygen:
		return build.ArtifactBenchMemKeygen
	case OpSign:
		return build.ArtifactBenchMemSign
	default:
		return build.ArtifactBenchMemOpen
	}
}

// Options configures the profiler.
type Options struct {
	Command       string
	MaxStackframe int
}

// Profiler drives valgrind against built executables.
type Profiler struct {
	exec *command.Executor
	opts Options
}

// New creates a Profiler. Missing options fall back to their defaults.
func New(exec *command.Executor, opts Options) *Profiler {
	if opts.Command == "" {
		opts.Command = constants.DefaultProfilerCommand
	}
	if opts.MaxStackframe <= 0 {
		opts.MaxStackframe = constants.DefaultMaxStackframe
	}
	return &Profiler{exec: exec, opts: opts}
}

// OutFile returns the massif output file name for op.
func OutFile(op Operation) string {
	return "massif." + string(op) + ".out"
}

// LogFile returns the valgrind log file name for op.
func LogFile(op Operation) string {
	return "massif." + string(op) + ".log"
}

// MassifCommand returns the shell command profiling op for v.
func (p *Profiler) MassifCommand(v matrix.Variant, op Operation) string {
	return fmt.Sprintf("%s --max-stackframe=%d --tool=massif --stacks=yes --log-file=%s --massif-out-file=%s ./%s",
		p.opts.Command, p.opts.MaxStackframe, LogFile(op), OutFile(op), build.Executable(v, op.artifact()))
}

// MemcheckCommand returns the shell command running the leak checker on
// one benchmark repetition of v.
func (p *Profiler) MemcheckCommand(v matrix.Variant) string {
	return fmt.Sprintf("%s --max-stackframe=%d --leak-check=yes ./%s 1",
		p.opts.Command, p.opts.MaxStackframe, build.Executable(v, build.ArtifactBench))
}

// Massif profiles one probe of v with cwd = dir and returns its snapshots.
func (p *Profiler) Massif(ctx context.Context, v matrix.Variant, dir string, op Operation) ([]parser.Snapshot, error) {
	res, err := p.exec.Run(ctx, dir, nil, p.MassifCommand(v, op))
	if err != nil {
		return nil, mqerrors.Wrapf(err, "%s: massif %s", v.Label(), op)
	}
	if res.Failed() {
		return nil, fmt.Errorf("%s: massif %s: %s: %w", v.Label(), op, strings.TrimSpace(res.Stderr), mqerrors.ErrProfilerFailed)
	}

	path := filepath.Join(dir, OutFile(op))
	f, err := os.Open(path) //#nosec G304 -- fixed file name inside the variant directory
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", v.Label(), mqerrors.ErrProfilerFailed, err)
	}
	defer func() { _ = f.Close() }()

	snaps, err := parser.ParseMassif(f)
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", v.Label(), path, err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("%s: %s has no snapshot: %w", v.Label(), path, mqerrors.ErrProfilerFailed)
	}
	return snaps, nil
}

// Peaks profiles the three probes of v in order and returns their peaks.
func (p *Profiler) Peaks(ctx context.Context, v matrix.Variant, dir string) (*parser.MemoryPeaks, error) {
	log := zerolog.Ctx(ctx)
	peaks := &parser.MemoryPeaks{}

	for _, op := range Operations() {
		snaps, err := p.Massif(ctx, v, dir, op)
		if err != nil {
			return nil, err
		}
		peak, _ := parser.Peak(snaps)

		switch op {
		case OpKeygen:
			peaks.KeyGen = peak.Total
		case OpSign:
			peaks.Sign = peak.Total
		case OpOpen:
			peaks.Verif = peak.Total
		}

		log.Debug().
			Str("variant", v.Label()).
			Str("operation", string(op)).
			Int("snapshots", len(snaps)).
			Int64("peak_bytes", peak.Total).
			Msg("memory profiled")
	}
	return peaks, nil
}

// Memcheck runs the leak checker on v and returns its ERROR SUMMARY line.
func (p *Profiler) Memcheck(ctx context.Context, v matrix.Variant, dir string) (string, error) {
	res, err := p.exec.Run(ctx, dir, nil, p.MemcheckCommand(v))
	if err != nil {
		return "", mqerrors.Wrapf(err, "%s: memcheck", v.Label())
	}
	for _, line := range parser.SplitLines(res.Stderr) {
		if strings.Contains(line, constants.MemcheckSummaryMarker) {
			return strings.TrimSpace(line), nil
		}
	}
	return "", fmt.Errorf("%s: no %s line in memcheck output: %w", v.Label(), constants.MemcheckSummaryMarker, mqerrors.ErrProfilerFailed)
}
