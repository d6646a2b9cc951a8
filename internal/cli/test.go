package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/mqomctl/internal/config"
	"github.com/mrz1836/mqomctl/internal/constants"
	"github.com/mrz1836/mqomctl/internal/coordinator"
	"github.com/mrz1836/mqomctl/internal/kat"
)

type testOptions struct {
	repetitions int
	compareKAT  string
	noKATCheck  bool
	noValgrind  bool
	jobs        int
	buildFolder string
	metricsFile string
}

// AddTestCommand adds the test command to the root command.
func AddTestCommand(root *cobra.Command, flags *GlobalFlags, deps *appDeps) {
	opts := &testOptions{}

	cmd := &cobra.Command{
		Use:   "test <selector>...",
		Short: "Verify the selected variants",
		Long: `Benchmark every selected variant with a small repetition count, run its
KAT generator and checker, optionally compare the generated responses with
a reference corpus, and run the benchmark once under the valgrind leak
checker. Any failure stops the whole run.

--compare-kat accepts a KAT folder or a submission package archive
(.zip, .tar.gz, .tgz).`,
		Example: `  mqomctl test all
  mqomctl test cat1 -c MQOM2-submission.zip
  mqomctl test cat3_gf16 --no-valgrind -p 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, flags, deps, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.repetitions, "nb-repetitions", "n", constants.DefaultTestRepetitions, "benchmark repetitions per variant")
	cmd.Flags().StringVarP(&opts.compareKAT, "compare-kat", "c", "", "reference KAT folder or archive")
	cmd.Flags().BoolVar(&opts.noKATCheck, "no-kat-check", false, "skip the KAT checker executable")
	cmd.Flags().BoolVar(&opts.noValgrind, "no-valgrind", false, "skip the memory leak check")
	addJobsFlag(cmd, &opts.jobs)
	cmd.Flags().StringVarP(&opts.buildFolder, "build-folder", "f", "", "folder holding the compiled variants")
	addMetricsFlag(cmd, &opts.metricsFile)

	root.AddCommand(cmd)
}

func runTest(cmd *cobra.Command, flags *GlobalFlags, deps *appDeps, opts *testOptions, args []string) error {
	variants, err := selectVariants(args)
	if err != nil {
		return err
	}

	overrides := &config.Config{
		Build: config.BuildConfig{OutputDir: opts.buildFolder},
		Test: config.TestConfig{
			CompareKAT: opts.compareKAT,
			NoKATCheck: opts.noKATCheck,
			NoValgrind: opts.noValgrind,
		},
	}
	if cmd.Flags().Changed("nb-repetitions") {
		overrides.Test.Repetitions = opts.repetitions
	}
	s, err := newSession(cmd, flags, deps, overrides, opts.metricsFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("parallel-jobs") {
		s.cfg.Run.Jobs = opts.jobs
	}

	builder := s.builder(nil, false)
	if err := requireDir(builder.Options().OutputDir); err != nil {
		return err
	}

	var ref *kat.Reference
	if s.cfg.Test.CompareKAT != "" {
		ref, err = kat.OpenReference(cmd.Context(), s.cfg.Test.CompareKAT, s.cfg.Build.TempDir)
		if err != nil {
			return err
		}
		defer func() { _ = ref.Close() }()
	}

	coord := s.coordinator(
		coordinator.Deps{
			Builder:  builder,
			Profiler: s.profiler(),
			Verifier: kat.NewVerifier(s.exec, ref, s.cfg.Test.NoKATCheck),
		},
		coordinator.Options{
			Jobs:        s.cfg.Run.Jobs,
			Repetitions: s.cfg.Test.Repetitions,
			NoValgrind:  s.cfg.Test.NoValgrind,
		},
	)

	var report *coordinator.TestReport
	err = withSignals(cmd.Context(), func(ctx context.Context) error {
		var runErr error
		report, runErr = coord.Test(ctx, variants)
		return runErr
	})
	if err != nil {
		return s.finish(cmd.Context(), err)
	}

	if isJSON(flags) {
		return s.finish(cmd.Context(), s.out.JSON(report))
	}
	s.out.Table(testTable(report))
	s.out.Success(fmt.Sprintf("%d variants verified", len(report.Outcomes)))
	return s.finish(cmd.Context(), nil)
}

// testTable summarizes one row per verified variant.
func testTable(report *coordinator.TestReport) ([]string, [][]string) {
	headers := []string{"variant", "correctness", "kat_check", "kat_reference", "memcheck"}
	rows := make([][]string, 0, len(report.Outcomes))
	for _, out := range report.Outcomes {
		if out == nil {
			continue
		}
		row := []string{out.Variant, "-", "skipped", "-", "skipped"}
		if out.Record != nil {
			row[1] = fmt.Sprintf("%d/%d", out.Record.Correctness, out.Record.CorrectnessTotal)
		}
		if out.KAT != nil {
			if out.KAT.Checked {
				row[2] = "ok"
			}
			if out.KAT.Reference != "" {
				row[3] = "match"
			}
		}
		if out.Memcheck != "" {
			row[4] = memcheckSummary(out.Memcheck)
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// memcheckSummary drops the valgrind pid prefix and the label of an
// ERROR SUMMARY line.
func memcheckSummary(line string) string {
	const marker = "ERROR SUMMARY:"
	if i := strings.Index(line, marker); i >= 0 {
		return strings.TrimSpace(line[i+len(marker):])
	}
	return line
}
