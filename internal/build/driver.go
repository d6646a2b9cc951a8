// Package build drives the external toolchain that produces the per-variant
// executables.
//
// The toolchain contract: the configured build command is invoked once per
// artifact target with EXTRA_CFLAGS, DESTINATION_PATH and PREFIX_EXEC in its
// environment, and writes <PREFIX_EXEC>_<target> into DESTINATION_PATH.
// Any output on the error stream is treated as a build failure.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/mqomctl/internal/command"
	"github.com/mrz1836/mqomctl/internal/constants"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/matrix"
)

// Options configures a Driver.
type Options struct {
	// Command is the build tool, "make" by default.
	Command string
	// BaseFlags is the operator-supplied EXTRA_CFLAGS before variant rewriting.
	BaseFlags string
	// OutputDir is the build folder; each variant writes into OutputDir/<label>.
	OutputDir string
	// Artifacts are the targets built per variant, in order. Nil means all.
	Artifacts []Artifact
	// DryRun reports the invocations without executing them.
	DryRun bool
}

// Invocation is one toolchain call.
type Invocation struct {
	Artifact Artifact      `json:"artifact"`
	Command  string        `json:"command"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration_ns,omitempty"`
}

// Failed reports whether the toolchain wrote to its error stream.
func (i Invocation) Failed() bool {
	return i.Stderr != ""
}

// Outcome collects the invocations issued for one variant.
type Outcome struct {
	Variant     matrix.Variant `json:"-"`
	Label       string         `json:"variant"`
	Dir         string         `json:"destination"`
	DryRun      bool           `json:"dry_run,omitempty"`
	Invocations []Invocation   `json:"invocations"`
}

// Failed reports whether any invocation failed.
func (o *Outcome) Failed() bool {
	for _, inv := range o.Invocations {
		if inv.Failed() {
			return true
		}
	}
	return false
}

// FailedArtifacts lists the artifacts whose invocation failed.
func (o *Outcome) FailedArtifacts() []Artifact {
	var out []Artifact
	for _, inv := range o.Invocations {
		if inv.Failed() {
			out = append(out, inv.Artifact)
		}
	}
	return out
}

// Err returns an ErrBuildFailed naming the variant and failed targets, or nil.
func (o *Outcome) Err() error {
	failed := o.FailedArtifacts()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, a := range failed {
		names[i] = string(a)
	}
	return fmt.Errorf("%s (%s): %w", o.Label, strings.Join(names, ", "), mqerrors.ErrBuildFailed)
}

// Driver issues toolchain invocations for variants.
type Driver struct {
	exec *command.Executor
	opts Options
}

// NewDriver creates a Driver. Missing options fall back to their defaults.
func NewDriver(exec *command.Executor, opts Options) *Driver {
	if opts.Command == "" {
		opts.Command = constants.DefaultBuildCommand
	}
	if opts.OutputDir == "" {
		opts.OutputDir = constants.DefaultBuildDir
	}
	if opts.Artifacts == nil {
		opts.Artifacts = AllArtifacts()
	}
	if abs, err := filepath.Abs(opts.OutputDir); err == nil {
		opts.OutputDir = abs
	}
	return &Driver{exec: exec, opts: opts}
}

// Options returns the effective options.
func (d *Driver) Options() Options {
	return d.opts
}

// VariantDir returns the destination directory of v's artifacts.
func (d *Driver) VariantDir(v matrix.Variant) string {
	return filepath.Join(d.opts.OutputDir, v.Label())
}

// Env returns the toolchain environment for v.
func (d *Driver) Env(v matrix.Variant) []string {
	return []string{
		constants.EnvExtraCFlags + "=" + v.Flags(d.opts.BaseFlags),
		constants.EnvDestinationPath + "=" + d.VariantDir(v),
		constants.EnvPrefixExec + "=" + v.Label(),
	}
}

// ShellForm renders the invocation for artifact as one shell line, the
// exact text an operator can paste to reproduce it.
func (d *Driver) ShellForm(v matrix.Variant, artifact Artifact) string {
	return fmt.Sprintf(`%s="%s" %s="%s" %s="%s" %s %s`,
		constants.EnvExtraCFlags, v.Flags(d.opts.BaseFlags),
		constants.EnvDestinationPath, d.VariantDir(v),
		constants.EnvPrefixExec, v.Label(),
		d.opts.Command, artifact)
}

// Build issues one invocation per configured artifact for v with cwd set to
// workDir. Toolchain failures are reported through the Outcome and do not
// stop the remaining invocations; the returned error is reserved for
// cancellation, timeouts and I/O problems.
func (d *Driver) Build(ctx context.Context, v matrix.Variant, workDir string) (*Outcome, error) {
	log := zerolog.Ctx(ctx).With().Str("variant", v.Label()).Logger()

	outcome := &Outcome{
		Variant: v,
		Label:   v.Label(),
		Dir:     d.VariantDir(v),
		DryRun:  d.opts.DryRun,
	}

	if d.opts.DryRun {
		for _, a := range d.opts.Artifacts {
			outcome.Invocations = append(outcome.Invocations, Invocation{Artifact: a, Command: d.ShellForm(v, a)})
		}
		return outcome, nil
	}

	if err := os.MkdirAll(outcome.Dir, constants.DirPerm); err != nil {
		return outcome, fmt.Errorf("failed to create destination for %s: %w", v.Label(), err)
	}

	env := d.Env(v)
	for _, a := range d.opts.Artifacts {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		res, err := d.exec.Run(ctx, workDir, env, d.opts.Command+" "+string(a))
		if res != nil {
			outcome.Invocations = append(outcome.Invocations, Invocation{
				Artifact: a,
				Command:  d.ShellForm(v, a),
				Stdout:   res.Stdout,
				Stderr:   res.Stderr,
				Duration: res.Duration,
			})
		}
		if err != nil {
			return outcome, mqerrors.Wrapf(err, "%s: %s", v.Label(), a)
		}
		if res.Failed() {
			log.Warn().Str("artifact", string(a)).Msg("toolchain reported errors")
		}
	}

	log.Info().
		Int("invocations", len(outcome.Invocations)).
		Bool("failed", outcome.Failed()).
		Msg("variant built")

	return outcome, nil
}

// Clean runs "<command> clean" in dir.
func (d *Driver) Clean(ctx context.Context, dir string) (*command.Result, error) {
	if d.opts.DryRun {
		return &command.Result{Command: d.opts.Command + " clean", Dir: dir}, nil
	}
	return d.exec.Run(ctx, dir, nil, d.opts.Command+" clean")
}
