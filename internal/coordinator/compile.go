package coordinator

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/mqomctl/internal/build"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/matrix"
)

// CompileReport holds one build outcome per variant in selection order.
// Entries of variants that never ran are nil.
type CompileReport struct {
	Outcomes []*build.Outcome `json:"builds"`
}

// Failed lists the labels whose build failed.
func (r *CompileReport) Failed() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o != nil && o.Failed() {
			out = append(out, o.Label)
		}
	}
	return out
}

// Err joins the failures of every failed build, or returns nil.
func (r *CompileReport) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o != nil {
			errs = append(errs, o.Err())
		}
	}
	return errors.Join(errs...)
}

// Compile builds every variant in its own working copy. Build failures are
// recorded in the report and reported through Progress; they stop the run
// only with FailFast. Working copies are removed when each variant is done
// and, on interrupt, by a final sweep.
func (c *Coordinator) Compile(ctx context.Context, variants []matrix.Variant) (*CompileReport, error) {
	if len(variants) == 0 {
		return nil, mqerrors.ErrNoVariants
	}
	report := &CompileReport{Outcomes: make([]*build.Outcome, len(variants))}

	if ws := c.deps.Workspaces; ws != nil {
		defer ws.Cleanup(ctx)
	}

	err := c.forEach(ctx, PipelineCompile, variants, func(ctx context.Context, i int, v matrix.Variant) error {
		outcome, err := c.compileVariant(ctx, v)
		report.Outcomes[i] = outcome
		return err
	})
	return report, finish(ctx, err)
}

func (c *Coordinator) compileVariant(ctx context.Context, v matrix.Variant) (*build.Outcome, error) {
	log := zerolog.Ctx(ctx)
	builder := c.deps.Builder
	ws := c.deps.Workspaces

	workDir := "."
	if ws != nil {
		workDir = ws.Source()
	}

	if ws != nil && !builder.Options().DryRun {
		dir, err := ws.Create(ctx, v.Label())
		if dir != "" {
			defer func() { _ = ws.Remove(ctx, dir) }()
		}
		if err != nil {
			return nil, err
		}
		workDir = dir

		c.deps.Metrics.CountCommand("clean")
		res, err := builder.Clean(ctx, workDir)
		if err != nil {
			return nil, mqerrors.Wrapf(err, "%s: clean", v.Label())
		}
		if res.Failed() {
			log.Warn().Str("stderr", strings.TrimSpace(res.Stderr)).Msg("clean reported errors")
		}
	}

	c.deps.Metrics.CountCommand("build")
	outcome, err := builder.Build(ctx, v, workDir)
	if err != nil {
		return outcome, err
	}

	buildErr := outcome.Err()
	c.emit(Event{
		Pipeline: PipelineCompile,
		Variant:  v.Label(),
		Stage:    StageBuild,
		OK:       buildErr == nil,
		Detail:   outcome.Dir,
		Err:      buildErr,
	})
	if buildErr != nil && c.opts.FailFast {
		return outcome, buildErr
	}
	return outcome, nil
}
