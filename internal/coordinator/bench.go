package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/mqomctl/internal/build"
	"github.com/mrz1836/mqomctl/internal/clock"
	"github.com/mrz1836/mqomctl/internal/command"
	"github.com/mrz1836/mqomctl/internal/constants"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/matrix"
	"github.com/mrz1836/mqomctl/internal/parser"
	"github.com/mrz1836/mqomctl/internal/profiler"
	"github.com/mrz1836/mqomctl/internal/results"
)

// BenchReport holds the appended records in selection order. Entries of
// variants that never finished are nil.
type BenchReport struct {
	Path    string           `json:"results"`
	Records []*parser.Record `json:"records"`
}

// Bench runs the benchmark executable of every variant, enforces the
// correctness counter, optionally profiles memory and appends each record
// to sink. Any failure aborts the run. The sink is closed before Bench
// returns, leaving a valid JSON array even after an interrupt.
func (c *Coordinator) Bench(ctx context.Context, variants []matrix.Variant, sink *results.Sink) (report *BenchReport, err error) {
	defer func() {
		if closeErr := sink.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if len(variants) == 0 {
		return nil, mqerrors.ErrNoVariants
	}
	if err := c.checkBuildFolder(); err != nil {
		return nil, err
	}

	report = &BenchReport{Path: sink.Path(), Records: make([]*parser.Record, len(variants))}
	err = c.forEach(ctx, PipelineBench, variants, func(ctx context.Context, i int, v matrix.Variant) error {
		rec, err := c.benchVariant(ctx, v, sink)
		report.Records[i] = rec
		return err
	})
	return report, finish(ctx, err)
}

func (c *Coordinator) benchVariant(ctx context.Context, v matrix.Variant, sink *results.Sink) (*parser.Record, error) {
	rec, err := c.runBenchmark(ctx, PipelineBench, v)
	if err != nil {
		return nil, err
	}

	if c.opts.Memory {
		peaks, err := c.profileMemory(ctx, v)
		if err != nil {
			return nil, err
		}
		rec.Memory = peaks
	}

	if err := sink.Append(rec); err != nil {
		return nil, mqerrors.Wrapf(err, "%s: append result", v.Label())
	}
	c.deps.Metrics.CountRecord()
	c.emit(Event{Pipeline: PipelineBench, Variant: v.Label(), Stage: StageDone, OK: true, Detail: sink.Path()})
	return rec, nil
}

// runBenchmark executes <label>_bench <repetitions> and parses its output.
// A correctness counter off by any amount is fatal.
func (c *Coordinator) runBenchmark(ctx context.Context, pipeline Pipeline, v matrix.Variant) (*parser.Record, error) {
	builder := c.deps.Builder
	exe := filepath.Join(builder.VariantDir(v), build.Executable(v, build.ArtifactBench))
	cmd := fmt.Sprintf("%s %d", command.Quote(exe), c.opts.Repetitions)

	c.deps.Metrics.CountCommand("bench")
	res, err := c.deps.Executor.Run(ctx, c.opts.RunDir, nil, cmd)
	if err != nil {
		return nil, mqerrors.Wrapf(err, "%s: benchmark", v.Label())
	}
	if res.Failed() {
		err := fmt.Errorf("%s: benchmark: %s: %w", v.Label(), strings.TrimSpace(res.Stderr), mqerrors.ErrExecutableFailed)
		c.emit(Event{Pipeline: pipeline, Variant: v.Label(), Stage: StageBench, Err: err})
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("stdout", res.Stdout).Msg("benchmark output")

	rec, err := parser.ParseBenchmark(res.Stdout, c.opts.Repetitions)
	if err != nil {
		err = mqerrors.Wrapf(err, "%s", v.Label())
		c.emit(Event{Pipeline: pipeline, Variant: v.Label(), Stage: StageBench, Err: err})
		return nil, err
	}

	rec.Path = v.Label()
	rec.Compilation = fmt.Sprintf(`%s="%s"`, constants.EnvExtraCFlags, v.Flags(builder.Options().BaseFlags))
	rec.Timestamp = clock.UnixSeconds(c.deps.Clock.Now())

	c.emit(Event{
		Pipeline: pipeline,
		Variant:  v.Label(),
		Stage:    StageBench,
		OK:       true,
		Detail:   fmt.Sprintf("keygen %.3f ms, sign %.3f ms, verify %.3f ms", rec.KeyGen.Mean, rec.Sign.Mean, rec.Verif.Mean),
	})
	return rec, nil
}

func (c *Coordinator) profileMemory(ctx context.Context, v matrix.Variant) (*parser.MemoryPeaks, error) {
	for range profiler.Operations() {
		c.deps.Metrics.CountCommand("massif")
	}
	peaks, err := c.deps.Profiler.Peaks(ctx, v, c.deps.Builder.VariantDir(v))
	if err != nil {
		c.emit(Event{Pipeline: PipelineBench, Variant: v.Label(), Stage: StageMemory, Err: err})
		return nil, err
	}

	c.deps.Metrics.SetPeakMemory(v.Label(), string(profiler.OpKeygen), peaks.KeyGen)
	c.deps.Metrics.SetPeakMemory(v.Label(), string(profiler.OpSign), peaks.Sign)
	c.deps.Metrics.SetPeakMemory(v.Label(), string(profiler.OpOpen), peaks.Verif)
	c.emit(Event{
		Pipeline: PipelineBench,
		Variant:  v.Label(),
		Stage:    StageMemory,
		OK:       true,
		Detail:   fmt.Sprintf("keygen %d B, sign %d B, verify %d B", peaks.KeyGen, peaks.Sign, peaks.Verif),
	})
	return peaks, nil
}

func (c *Coordinator) checkBuildFolder() error {
	dir := c.deps.Builder.Options().OutputDir
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("%s: %w", dir, mqerrors.ErrBuildFolderMissing)
	}
	return err
}
