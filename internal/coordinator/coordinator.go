// Package coordinator sequences the per-variant compile, bench and test
// pipelines and fans them out over a bounded worker pool.
//
// Steps inside one variant's pipeline always run in order. Only whole
// pipelines run concurrently, and the results sink is the only state they
// share. On cancellation the coordinator stops scheduling, lets in-flight
// commands die with the context, removes every working copy it created and
// closes the results sink before returning ErrInterrupted.
package coordinator

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/mqomctl/internal/build"
	"github.com/mrz1836/mqomctl/internal/clock"
	"github.com/mrz1836/mqomctl/internal/command"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/kat"
	"github.com/mrz1836/mqomctl/internal/matrix"
	"github.com/mrz1836/mqomctl/internal/metrics"
	"github.com/mrz1836/mqomctl/internal/profiler"
	"github.com/mrz1836/mqomctl/internal/workspace"
)

// Pipeline names a coordinator pipeline.
type Pipeline string

// Pipelines.
const (
	PipelineCompile Pipeline = "compile"
	PipelineBench   Pipeline = "bench"
	PipelineTest    Pipeline = "test"
)

// Stage names a step inside a pipeline.
type Stage string

// Stages reported through Progress.
const (
	StageStart    Stage = "start"
	StageBuild    Stage = "build"
	StageBench    Stage = "bench"
	StageMemory   Stage = "memory"
	StageKATGen   Stage = "kat_gen"
	StageKATCheck Stage = "kat_check"
	StageKATRef   Stage = "kat_reference"
	StageMemcheck Stage = "memcheck"
	StageDone     Stage = "done"
)

// Event is one progress notification.
type Event struct {
	Pipeline Pipeline
	Variant  string
	Stage    Stage
	OK       bool
	Detail   string
	Err      error
}

// ProgressFunc receives progress events. Calls are serialized.
type ProgressFunc func(Event)

// Options is the run configuration, built once at the CLI boundary.
type Options struct {
	// Jobs is the worker count: 0 runs sequentially in selection order,
	// a negative value uses every CPU.
	Jobs int
	// FailFast aborts a compile run on the first build failure.
	FailFast bool
	// Repetitions is passed to the benchmark executable.
	Repetitions int
	// Memory enables the massif probes in the bench pipeline.
	Memory bool
	// NoValgrind skips the leak checker in the test pipeline.
	NoValgrind bool
	// RunDir is the working directory of benchmark executables.
	RunDir string
}

// Deps are the collaborators a Coordinator drives.
type Deps struct {
	Executor   *command.Executor
	Builder    *build.Driver
	Workspaces *workspace.Manager
	Profiler   *profiler.Profiler
	Verifier   *kat.Verifier
	Clock      clock.Clock
	Metrics    *metrics.Recorder
	Progress   ProgressFunc
}

// Coordinator runs pipelines over a variant list.
type Coordinator struct {
	deps Deps
	opts Options

	progressMu sync.Mutex
}

// New creates a Coordinator. Missing collaborators that have a sensible
// default are created from the executor.
func New(deps Deps, opts Options) *Coordinator {
	if deps.Executor == nil {
		deps.Executor = command.NewExecutor(0)
	}
	if deps.Builder == nil {
		deps.Builder = build.NewDriver(deps.Executor, build.Options{})
	}
	if deps.Profiler == nil {
		deps.Profiler = profiler.New(deps.Executor, profiler.Options{})
	}
	if deps.Verifier == nil {
		deps.Verifier = kat.NewVerifier(deps.Executor, nil, false)
	}
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	if opts.RunDir == "" {
		opts.RunDir = "."
	}
	return &Coordinator{deps: deps, opts: opts}
}

// Workers returns the effective worker count; 0 means sequential.
func (c *Coordinator) Workers() int {
	switch {
	case c.opts.Jobs < 0:
		return runtime.NumCPU()
	default:
		return c.opts.Jobs
	}
}

type variantFunc func(ctx context.Context, i int, v matrix.Variant) error

// forEach runs fn for every variant, sequentially or on the worker pool.
// The first error stops scheduling and cancels the remaining variants.
func (c *Coordinator) forEach(ctx context.Context, pipeline Pipeline, variants []matrix.Variant, fn variantFunc) error {
	run := func(ctx context.Context, i int, v matrix.Variant) error {
		logger := zerolog.Ctx(ctx).With().Str("variant", v.Label()).Str("pipeline", string(pipeline)).Logger()
		ctx = logger.WithContext(ctx)

		c.emit(Event{Pipeline: pipeline, Variant: v.Label(), Stage: StageStart, OK: true})
		start := c.deps.Clock.Now()
		err := fn(ctx, i, v)
		c.deps.Metrics.ObserveVariant(string(pipeline), err != nil, c.elapsed(start))
		return err
	}

	workers := c.Workers()
	if workers == 0 {
		for i, v := range variants {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := run(ctx, i, v); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range variants {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return run(gctx, i, v)
		})
	}
	return g.Wait()
}

// finish maps a cancelled parent context to ErrInterrupted.
func finish(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", mqerrors.ErrInterrupted, ctx.Err())
	}
	return err
}

func (c *Coordinator) emit(e Event) {
	if c.deps.Progress == nil {
		return
	}
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	c.deps.Progress(e)
}

func (c *Coordinator) elapsed(start time.Time) time.Duration {
	return clock.Since(c.deps.Clock, start)
}
