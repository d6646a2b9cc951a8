package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/mqomctl/internal/build"
	"github.com/mrz1836/mqomctl/internal/config"
	"github.com/mrz1836/mqomctl/internal/coordinator"
)

type compileOptions struct {
	noKAT       bool
	noBench     bool
	jobs        int
	onlyPrint   bool
	failFast    bool
	metricsFile string
}

// AddCompileCommand adds the compile command to the root command.
func AddCompileCommand(root *cobra.Command, flags *GlobalFlags, deps *appDeps) {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile <selector>...",
		Short: "Build the selected variants",
		Long: `Build the benchmark, memory-probe and KAT executables of every selected
variant. Each variant is built in a private copy of the source tree and its
executables land in <build folder>/<label>.

A failed build is reported and the remaining variants continue unless
--fail-fast is given. --only-print shows the build commands without running them.`,
		Example: `  mqomctl compile all
  mqomctl compile cat1_gf256 -p 4
  mqomctl compile cat3 --no-kat --only-print`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, flags, deps, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.noKAT, "no-kat", false, "skip the KAT generator and checker")
	cmd.Flags().BoolVar(&opts.noBench, "no-bench", false, "skip the benchmark and memory-probe executables")
	addJobsFlag(cmd, &opts.jobs)
	cmd.Flags().BoolVar(&opts.onlyPrint, "only-print", false, "print the build commands without running them")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "stop at the first failed build")
	addMetricsFlag(cmd, &opts.metricsFile)

	root.AddCommand(cmd)
}

func runCompile(cmd *cobra.Command, flags *GlobalFlags, deps *appDeps, opts *compileOptions, args []string) error {
	variants, err := selectVariants(args)
	if err != nil {
		return err
	}

	s, err := newSession(cmd, flags, deps, &config.Config{Run: config.RunConfig{FailFast: opts.failFast}}, opts.metricsFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("parallel-jobs") {
		s.cfg.Run.Jobs = opts.jobs
	}

	ws, err := s.workspaces()
	if err != nil {
		return err
	}
	builder := s.builder(build.SelectArtifacts(opts.noBench, opts.noKAT), opts.onlyPrint)
	coord := s.coordinator(
		coordinator.Deps{Builder: builder, Workspaces: ws},
		coordinator.Options{Jobs: s.cfg.Run.Jobs, FailFast: s.cfg.Run.FailFast},
	)

	var report *coordinator.CompileReport
	err = withSignals(cmd.Context(), func(ctx context.Context) error {
		var runErr error
		report, runErr = coord.Compile(ctx, variants)
		return runErr
	})
	if err != nil {
		return s.finish(cmd.Context(), err)
	}

	if isJSON(flags) {
		if jErr := s.out.JSON(report); jErr != nil {
			return jErr
		}
		return s.finish(cmd.Context(), report.Err())
	}

	if opts.onlyPrint {
		for _, outcome := range report.Outcomes {
			for _, inv := range outcome.Invocations {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), inv.Command)
			}
		}
		return s.finish(cmd.Context(), nil)
	}

	if failed := report.Failed(); len(failed) > 0 {
		s.out.Warning(fmt.Sprintf("%d of %d variants failed to build", len(failed), len(variants)))
	} else {
		s.out.Success(fmt.Sprintf("%d variants built in %s", len(variants), builder.Options().OutputDir))
	}
	return s.finish(cmd.Context(), report.Err())
}
