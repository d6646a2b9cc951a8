package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/mqomctl/internal/config"
	"github.com/mrz1836/mqomctl/internal/constants"
	"github.com/mrz1836/mqomctl/internal/coordinator"
	"github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/parser"
	"github.com/mrz1836/mqomctl/internal/results"
)

type benchOptions struct {
	repetitions int
	jobs        int
	memory      bool
	results     string
	buildFolder string
	metricsFile string
}

// AddBenchCommand adds the bench command to the root command.
func AddBenchCommand(root *cobra.Command, flags *GlobalFlags, deps *appDeps) {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench <selector>...",
		Short: "Benchmark the selected variants",
		Long: `Run the benchmark executable of every selected variant from the build
folder and append one record per variant to a JSON results file. With
--memory the three massif probes also report the peak memory of key
generation, signing and verification.

The results file stays a valid JSON array even when the run is interrupted.`,
		Example: `  mqomctl bench all -n 1000
  mqomctl bench cat1 --memory --results stats/cat1.json
  mqomctl bench cat5_gf256 -f /tmp/build`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, flags, deps, opts, args)
		},
	}

	cmd.Flags().IntVarP(&opts.repetitions, "nb-repetitions", "n", constants.DefaultBenchRepetitions, "benchmark repetitions per variant")
	addJobsFlag(cmd, &opts.jobs)
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "profile peak memory with valgrind massif")
	cmd.Flags().StringVar(&opts.results, "results", "", "results file (default <stats dir>/<timestamp>.json)")
	cmd.Flags().StringVarP(&opts.buildFolder, "build-folder", "f", "", "folder holding the compiled variants")
	addMetricsFlag(cmd, &opts.metricsFile)

	root.AddCommand(cmd)
}

func runBench(cmd *cobra.Command, flags *GlobalFlags, deps *appDeps, opts *benchOptions, args []string) error {
	variants, err := selectVariants(args)
	if err != nil {
		return err
	}

	overrides := &config.Config{
		Build: config.BuildConfig{OutputDir: opts.buildFolder},
		Bench: config.BenchConfig{Memory: opts.memory},
	}
	if cmd.Flags().Changed("nb-repetitions") {
		overrides.Bench.Repetitions = opts.repetitions
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

	path := opts.results
	if path == "" {
		path = results.DefaultPath(s.cfg.Bench.StatsDir, deps.clockNow())
	}
	sink, err := results.Open(path)
	if err != nil {
		return err
	}

	coord := s.coordinator(
		coordinator.Deps{Builder: builder, Profiler: s.profiler()},
		coordinator.Options{
			Jobs:        s.cfg.Run.Jobs,
			Repetitions: s.cfg.Bench.Repetitions,
			Memory:      s.cfg.Bench.Memory,
		},
	)

	var report *coordinator.BenchReport
	err = withSignals(cmd.Context(), func(ctx context.Context) error {
		var runErr error
		report, runErr = coord.Bench(ctx, variants, sink)
		return runErr
	})
	if err != nil {
		return s.finish(cmd.Context(), err)
	}

	if isJSON(flags) {
		return s.finish(cmd.Context(), s.out.JSON(report))
	}
	headers, rows := benchTable(report.Records, s.cfg.Bench.Memory)
	s.out.Table(headers, rows)
	s.out.Success(fmt.Sprintf("%d records written to %s", sink.Count(), sink.Path()))
	return s.finish(cmd.Context(), nil)
}

// requireDir reports ErrBuildFolderMissing unless dir is a directory.
func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, errors.ErrBuildFolderMissing)
	}
	return nil
}

// benchTable renders records as rows of mean timings and sizes. Peak
// memory columns are added when profiling ran.
func benchTable(records []*parser.Record, memory bool) ([]string, [][]string) {
	headers := []string{"variant", "keygen_ms", "sign_ms", "verify_ms", "pk_bytes", "sig_bytes"}
	if memory {
		headers = append(headers, "keygen_mem", "sign_mem", "verify_mem")
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		row := []string{
			rec.Path,
			formatMillis(rec.KeyGen.Mean),
			formatMillis(rec.Sign.Mean),
			formatMillis(rec.Verif.Mean),
			strconv.FormatInt(rec.PKSize, 10),
			strconv.FormatInt(rec.SigSizeMax, 10),
		}
		if memory {
			if rec.Memory != nil {
				row = append(row,
					strconv.FormatInt(rec.Memory.KeyGen, 10),
					strconv.FormatInt(rec.Memory.Sign, 10),
					strconv.FormatInt(rec.Memory.Verif, 10))
			} else {
				row = append(row, "-", "-", "-")
			}
		}
		rows = append(rows, row)
	}
	return headers, rows
}

func formatMillis(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 3, 64)
}
