package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/testutil"
)

func shellLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "EXTRA_CFLAGS=") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestCompile_OnlyPrintExecutesNothing(t *testing.T) {
	isolateEnv(t)
	cfg, buildDir, _ := projectLayout(t, nil)
	fake := testutil.NewFakeRunner()

	out, err := runCLI(t, &appDeps{runner: fake}, "compile", "cat1_gf2_short", "--only-print", "--config", cfg)

	require.NoError(t, err)
	assert.Empty(t, fake.Calls())
	lines := shellLines(out)
	require.Len(t, lines, 12, "two variants with six artifacts each")
	assert.Equal(t,
		`EXTRA_CFLAGS="-DMQOM2_PARAM_SECURITY=128 -DMQOM2_PARAM_BASE_FIELD=1 -DMQOM2_PARAM_TRADEOFF=1 -DMQOM2_PARAM_NBROUNDS=3" `+
			`DESTINATION_PATH="`+filepath.Join(buildDir, "cat1_gf2_short_r3")+`" PREFIX_EXEC="cat1_gf2_short_r3" make bench`,
		lines[0])
	assert.NoDirExists(t, buildDir)
}

func TestCompile_ArtifactSelection(t *testing.T) {
	isolateEnv(t)
	cfg, _, _ := projectLayout(t, nil)

	tests := []struct {
		name  string
		flags []string
		want  []string
	}{
		{"no kat", []string{"--no-kat"}, []string{"bench", "bench_mem_keygen", "bench_mem_sign", "bench_mem_open"}},
		{"no bench", []string{"--no-bench"}, []string{"kat_gen", "kat_check"}},
		{"neither", []string{"--no-kat", "--no-bench"}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"compile", "cat1_gf2_short_r3", "--only-print", "--config", cfg}, tc.flags...)
			out, err := runCLI(t, &appDeps{runner: testutil.NewFakeRunner()}, args...)
			require.NoError(t, err)

			lines := shellLines(out)
			require.Len(t, lines, len(tc.want))
			for i, target := range tc.want {
				assert.True(t, strings.HasSuffix(lines[i], "make "+target), lines[i])
			}
		})
	}
}

func TestCompile_BuildsInWorkingCopies(t *testing.T) {
	isolateEnv(t)
	cfg, buildDir, _ := projectLayout(t, nil)
	fake := testutil.NewFakeRunner()

	_, err := runCLI(t, &appDeps{runner: fake}, "compile", "cat1_gf2_short", "-p", "2", "--config", cfg)

	require.NoError(t, err)
	assert.Len(t, fake.CallsContaining("make clean"), 2)
	benches := fake.CallsContaining("make bench")
	require.Len(t, benches, 8, "four bench targets per variant")

	for _, c := range fake.CallsContaining("make kat_gen") {
		assert.Contains(t, filepath.Base(c.WorkDir), "mqomctl-cat1_gf2_short_r")
		label := testutil.EnvValue(c.Env, "PREFIX_EXEC")
		assert.Equal(t, filepath.Join(buildDir, label), testutil.EnvValue(c.Env, "DESTINATION_PATH"))
		assert.NoDirExists(t, c.WorkDir, "working copies are removed")
	}
	assert.DirExists(t, filepath.Join(buildDir, "cat1_gf2_short_r3"))
	assert.DirExists(t, filepath.Join(buildDir, "cat1_gf2_short_r5"))
}

func TestCompile_FailureReportedAfterAllVariants(t *testing.T) {
	isolateEnv(t)
	cfg, _, _ := projectLayout(t, nil)
	fake := testutil.NewFakeRunner().
		On("make kat_check", testutil.Response{Stderr: "kat_check.c:12: error: expected ';'\n"})

	out, err := runCLI(t, &appDeps{runner: fake}, "compile", "cat1_gf2_short", "--config", cfg)

	require.ErrorIs(t, err, errors.ErrBuildFailed)
	assert.Equal(t, ExitError, ExitCodeForError(err))
	assert.Len(t, fake.CallsContaining("make kat_check"), 2, "a failed build does not stop its siblings")
	assert.Contains(t, out, "2 of 2 variants failed to build")
}

func TestCompile_FailFast(t *testing.T) {
	isolateEnv(t)
	cfg, _, _ := projectLayout(t, nil)
	fake := testutil.NewFakeRunner().
		On("make bench_mem_open", testutil.Response{Stderr: "error\n"})

	_, err := runCLI(t, &appDeps{runner: fake}, "compile", "cat1_gf2_short", "--fail-fast", "--config", cfg)

	require.ErrorIs(t, err, errors.ErrBuildFailed)
	assert.Len(t, fake.CallsContaining("make bench_mem_open"), 1)
}

func TestCompile_WritesMetricsFile(t *testing.T) {
	isolateEnv(t)
	cfg, _, _ := projectLayout(t, nil)
	metricsPath := filepath.Join(t.TempDir(), "mqomctl.prom")

	_, err := runCLI(t, &appDeps{runner: testutil.NewFakeRunner()},
		"compile", "cat3_gf16_fast_r3", "--config", cfg, "--metrics-file", metricsPath)

	require.NoError(t, err)
	data, err := os.ReadFile(metricsPath) //#nosec G304 -- test temp dir
	require.NoError(t, err)
	assert.Contains(t, string(data), `mqomctl_variants_total{outcome="ok",pipeline="compile"} 1`)
	assert.Contains(t, string(data), `mqomctl_commands_total{kind="build"} 1`)
}

func TestCompile_JSONReport(t *testing.T) {
	isolateEnv(t)
	cfg, _, _ := projectLayout(t, nil)

	out, err := runCLI(t, &appDeps{runner: testutil.NewFakeRunner()},
		"compile", "cat5_gf256_fast_r5", "--only-print", "--no-kat", "-o", "json", "--config", cfg)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `{"builds":[{"variant":"cat5_gf256_fast_r5"`), out)
	assert.Contains(t, out, `"dry_run":true`)
}
