package coordinator

import (
	"context"

	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/kat"
	"github.com/mrz1836/mqomctl/internal/matrix"
	"github.com/mrz1836/mqomctl/internal/parser"
)

// TestOutcome is the verification result of one variant.
type TestOutcome struct {
	Variant  string         `json:"variant"`
	Record   *parser.Record `json:"benchmark"`
	KAT      *kat.Outcome   `json:"kat"`
	Memcheck string         `json:"memcheck,omitempty"`
}

// TestReport holds one outcome per variant in selection order.
type TestReport struct {
	Outcomes []*TestOutcome `json:"tests"`
}

// Test benchmarks each variant, verifies its known-answer tests and,
// unless NoValgrind is set, runs the leak checker. Every failure is fatal
// and cancels the run.
func (c *Coordinator) Test(ctx context.Context, variants []matrix.Variant) (*TestReport, error) {
	if len(variants) == 0 {
		return nil, mqerrors.ErrNoVariants
	}
	if err := c.checkBuildFolder(); err != nil {
		return nil, err
	}

	report := &TestReport{Outcomes: make([]*TestOutcome, len(variants))}
	err := c.forEach(ctx, PipelineTest, variants, func(ctx context.Context, i int, v matrix.Variant) error {
		out, err := c.testVariant(ctx, v)
		report.Outcomes[i] = out
		return err
	})
	return report, finish(ctx, err)
}

func (c *Coordinator) testVariant(ctx context.Context, v matrix.Variant) (*TestOutcome, error) {
	rec, err := c.runBenchmark(ctx, PipelineTest, v)
	if err != nil {
		return nil, err
	}
	out := &TestOutcome{Variant: v.Label(), Record: rec}
	dir := c.deps.Builder.VariantDir(v)

	c.deps.Metrics.CountCommand("kat")
	katOut, err := c.deps.Verifier.Verify(ctx, v, dir, rec.SKSize)
	if err != nil {
		c.emit(Event{Pipeline: PipelineTest, Variant: v.Label(), Stage: StageKATGen, Err: err})
		return out, err
	}
	out.KAT = katOut
	c.emit(Event{Pipeline: PipelineTest, Variant: v.Label(), Stage: StageKATGen, OK: true, Detail: katOut.Response})
	if katOut.Checked {
		c.emit(Event{Pipeline: PipelineTest, Variant: v.Label(), Stage: StageKATCheck, OK: true})
	}
	if katOut.Reference != "" {
		c.emit(Event{Pipeline: PipelineTest, Variant: v.Label(), Stage: StageKATRef, OK: true, Detail: katOut.Reference})
	}

	if !c.opts.NoValgrind {
		c.deps.Metrics.CountCommand("memcheck")
		summary, err := c.deps.Profiler.Memcheck(ctx, v, dir)
		if err != nil {
			c.emit(Event{Pipeline: PipelineTest, Variant: v.Label(), Stage: StageMemcheck, Err: err})
			return out, err
		}
		out.Memcheck = summary
		c.emit(Event{Pipeline: PipelineTest, Variant: v.Label(), Stage: StageMemcheck, OK: true, Detail: summary})
	}
	return out, nil
}
