package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/mqomctl/internal/build"
	"github.com/mrz1836/mqomctl/internal/command"
	"github.com/mrz1836/mqomctl/internal/config"
	"github.com/mrz1836/mqomctl/internal/coordinator"
	"github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/matrix"
	"github.com/mrz1836/mqomctl/internal/metrics"
	"github.com/mrz1836/mqomctl/internal/profiler"
	"github.com/mrz1836/mqomctl/internal/signal"
	"github.com/mrz1836/mqomctl/internal/tui"
	"github.com/mrz1836/mqomctl/internal/workspace"
)

// forceExit terminates the process when teardown is abandoned.
var forceExit = os.Exit //nolint:gochecknoglobals // Replaced in tests

// session is the resolved configuration and shared collaborators of one
// pipeline command.
type session struct {
	cfg     *config.Config
	out     tui.Output
	flags   *GlobalFlags
	exec    *command.Executor
	metrics *metrics.Recorder

	metricsFile string
}

// newSession loads the layered configuration with overrides applied on
// top and creates the executor every component shares.
func newSession(cmd *cobra.Command, flags *GlobalFlags, deps *appDeps, overrides *config.Config, metricsFile string) (*session, error) {
	cfg, err := config.LoadWithOverrides(cmd.Context(), flags.Config, overrides)
	if err != nil {
		return nil, err
	}

	exec := deps.executor(cfg.Run.Timeout)
	if flags.Verbose && !isJSON(flags) {
		exec.SetLiveOutput(cmd.ErrOrStderr())
	}

	s := &session{
		cfg:         cfg,
		out:         tui.NewOutput(cmd.OutOrStdout(), flags.Output),
		flags:       flags,
		exec:        exec,
		metricsFile: metricsFile,
	}
	if metricsFile != "" {
		s.metrics = metrics.NewRecorder()
	}
	return s, nil
}

func isJSON(flags *GlobalFlags) bool {
	return strings.EqualFold(flags.Output, tui.FormatJSON)
}

// builder creates the build driver for the configured toolchain.
func (s *session) builder(artifacts []build.Artifact, dryRun bool) *build.Driver {
	return build.NewDriver(s.exec, build.Options{
		Command:   s.cfg.Build.Command,
		BaseFlags: s.cfg.Build.ExtraCFlags,
		OutputDir: s.cfg.Build.OutputDir,
		Artifacts: artifacts,
		DryRun:    dryRun,
	})
}

// workspaces creates the working copy manager for the source tree.
func (s *session) workspaces() (*workspace.Manager, error) {
	return workspace.NewManager(s.cfg.Build.SourceDir, s.cfg.Build.TempDir, workspace.Filter{
		Extensions: s.cfg.Build.CopyExtensions,
		Names:      s.cfg.Build.CopyFiles,
		SkipDirs:   s.cfg.Build.SkipDirs,
	})
}

func (s *session) profiler() *profiler.Profiler {
	return profiler.New(s.exec, profiler.Options{
		Command:       s.cfg.Profiler.Command,
		MaxStackframe: s.cfg.Profiler.MaxStackframe,
	})
}

// coordinator wires deps into a Coordinator with this session's clock,
// metrics and progress reporting.
func (s *session) coordinator(deps coordinator.Deps, opts coordinator.Options) *coordinator.Coordinator {
	deps.Executor = s.exec
	deps.Metrics = s.metrics
	deps.Progress = s.progress()
	return coordinator.New(deps, opts)
}

// progress renders coordinator events as output lines. JSON output keeps
// stdout for the final report, so events only reach the log there.
func (s *session) progress() coordinator.ProgressFunc {
	if isJSON(s.flags) {
		return nil
	}
	quiet := s.flags.Quiet
	return func(e coordinator.Event) {
		switch {
		case e.Err != nil:
			s.out.Error(e.Err)
		case e.Stage == coordinator.StageStart:
			if !quiet {
				s.out.Info(fmt.Sprintf("%s: %s", e.Variant, e.Pipeline))
			}
		case e.OK && !quiet:
			msg := fmt.Sprintf("%s: %s", e.Variant, strings.ReplaceAll(string(e.Stage), "_", " "))
			if e.Detail != "" {
				msg += " (" + e.Detail + ")"
			}
			s.out.Success(msg)
		}
	}
}

// finish writes the metrics textfile, if requested, and reports an
// interrupt as a warning.
func (s *session) finish(ctx context.Context, err error) error {
	if s.metricsFile != "" {
		if mErr := s.metrics.WriteTextfile(s.metricsFile); mErr != nil {
			zerolog.Ctx(ctx).Warn().Err(mErr).Str("path", s.metricsFile).Msg("failed to write metrics")
		}
	}
	if err != nil && ExitCodeForError(err) == ExitSuccess {
		s.out.Warning("interrupted, temporary state removed")
	}
	return err
}

// withSignals runs fn under a context canceled by the first SIGINT or
// SIGTERM. A second signal abandons teardown and exits immediately.
func withSignals(ctx context.Context, fn func(ctx context.Context) error) error {
	h := signal.NewHandler(ctx)
	defer h.Stop()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-h.Interrupted():
		case <-stop:
			return
		}
		zerolog.Ctx(ctx).Warn().Str("signal", fmt.Sprint(h.Signal())).Msg("interrupt received, cleaning up")
		select {
		case <-h.Forced():
			zerolog.Ctx(ctx).Error().Msg("second interrupt, exiting without cleanup")
			forceExit(ExitForced)
		case <-stop:
		}
	}()

	return fn(h.Context())
}

// selectVariants parses the positional selectors and expands them.
func selectVariants(args []string) ([]matrix.Variant, error) {
	selectors, err := matrix.ParseSelectors(args)
	if err != nil {
		return nil, err
	}
	variants := matrix.Expand(selectors)
	if len(variants) == 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(args, " "), errors.ErrNoVariants)
	}
	return variants, nil
}

// addJobsFlag registers -p/--parallel-jobs.
func addJobsFlag(cmd *cobra.Command, jobs *int) {
	cmd.Flags().IntVarP(jobs, "parallel-jobs", "p", 0, "worker count (0 sequential, negative for every CPU)")
}

// addMetricsFlag registers --metrics-file.
func addMetricsFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "metrics-file", "", "write Prometheus metrics in textfile format to this path")
}
