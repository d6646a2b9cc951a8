package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/testutil"
)

// fakeTools is a config.CommandExecutor answering version probes.
type fakeTools map[string]string

func (f fakeTools) LookPath(file string) (string, error) {
	if _, ok := f[file]; ok {
		return "/usr/bin/" + file, nil
	}
	return "", exec.ErrNotFound
}

func (f fakeTools) Run(_ context.Context, name string, _ ...string) (string, error) {
	out, ok := f[name]
	if !ok {
		return "", exec.ErrNotFound
	}
	return out, nil
}

func TestDoctor_AllInstalled(t *testing.T) {
	isolateEnv(t)
	tools := fakeTools{
		"make":     "GNU Make 4.3\n",
		"cc":       "cc (Debian 12.2.0-14) 12.2.0\n",
		"valgrind": "valgrind-3.19.0\n",
	}

	out, err := runCLI(t, &appDeps{tools: tools}, "doctor")

	require.NoError(t, err)
	assert.Contains(t, out, "valgrind")
	assert.Contains(t, out, "3.19.0")
	assert.Contains(t, out, "installed")
}

func TestDoctor_MissingProfilerIsNotFatal(t *testing.T) {
	isolateEnv(t)
	tools := fakeTools{"make": "GNU Make 4.3\n", "cc": "cc 12.2.0\n"}

	out, err := runCLI(t, &appDeps{tools: tools}, "doctor", "-o", "json")

	require.NoError(t, err)
	var result struct {
		Tools []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"tools"`
		HasMissingRequired bool `json:"has_missing_required"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	assert.False(t, result.HasMissingRequired)
	require.Len(t, result.Tools, 3)
	assert.Equal(t, "missing", result.Tools[2].Status)
}

func TestDoctor_MissingCompiler(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, &appDeps{tools: fakeTools{"make": "GNU Make 4.3\n"}}, "doctor")

	require.ErrorIs(t, err, errors.ErrToolsMissing)
	assert.Contains(t, err.Error(), "cc: missing")
	assert.Equal(t, ExitError, ExitCodeForError(err))
}

func TestClean_RunsCleanTarget(t *testing.T) {
	isolateEnv(t)
	cfg, buildDir, _ := projectLayout(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "cat1_gf2_short_r3"), 0o750))
	fake := testutil.NewFakeRunner()

	out, err := runCLI(t, &appDeps{runner: fake}, "clean", "--config", cfg)

	require.NoError(t, err)
	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "make clean", calls[0].Command)
	assert.Equal(t, "src", filepath.Base(calls[0].WorkDir))
	assert.Contains(t, out, "cleaned")
	assert.DirExists(t, buildDir, "the build folder is kept without --build")
}

func TestClean_BuildAndWorkCopies(t *testing.T) {
	isolateEnv(t)
	cfg, buildDir, _ := projectLayout(t, nil)
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "cat1_gf2_short_r3"), 0o750))
	tmp := filepath.Join(filepath.Dir(buildDir), "tmp")
	stale := filepath.Join(tmp, "mqomctl-cat1_gf2_short_r3-42")
	require.NoError(t, os.MkdirAll(stale, 0o750))

	out, err := runCLI(t, &appDeps{runner: testutil.NewFakeRunner()}, "clean", "--build", "--work-copies", "-o", "json", "--config", cfg)

	require.NoError(t, err)
	assert.NoDirExists(t, buildDir)
	assert.NoDirExists(t, stale)

	var res cleanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, buildDir, res.BuildDir)
	assert.Equal(t, []string{stale}, res.WorkCopies)
}

func TestClean_ReportsToolchainErrors(t *testing.T) {
	isolateEnv(t)
	cfg, _, _ := projectLayout(t, nil)
	fake := testutil.NewFakeRunner().On("make clean", testutil.Response{Stderr: "make: *** No rule to make target 'clean'.\n"})

	out, err := runCLI(t, &appDeps{runner: fake}, "clean", "--config", cfg)

	require.NoError(t, err)
	assert.Contains(t, out, "No rule to make target")
}
