package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
)

// isolateEnv points HOME at an empty directory and clears the variables
// the loader reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EXTRA_CFLAGS", "")
	t.Setenv("MQOMCTL_BUILD_EXTRA_CFLAGS", "")
	t.Setenv("MQOMCTL_RUN_JOBS", "")
}

func writeYAML(t *testing.T, dir string, content map[string]any) string {
	t.Helper()
	data, err := yaml.Marshal(content)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadFromPaths_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadFromPaths(context.Background(), "", "")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromPaths_ProjectOverridesGlobal(t *testing.T) {
	isolateEnv(t)

	global := writeYAML(t, t.TempDir(), map[string]any{
		"build": map[string]any{"output_dir": "global-build", "extra_cflags": "-O2"},
		"bench": map[string]any{"repetitions": 50},
	})
	project := writeYAML(t, t.TempDir(), map[string]any{
		"build": map[string]any{"output_dir": "project-build"},
		"run":   map[string]any{"jobs": 4, "timeout": "90s"},
	})

	cfg, err := LoadFromPaths(context.Background(), project, global)

	require.NoError(t, err)
	assert.Equal(t, "project-build", cfg.Build.OutputDir)
	assert.Equal(t, "-O2", cfg.Build.ExtraCFlags, "unset project keys fall through to global")
	assert.Equal(t, 50, cfg.Bench.Repetitions)
	assert.Equal(t, 4, cfg.Run.Jobs)
	assert.Equal(t, 90*time.Second, cfg.Run.Timeout)
	assert.Equal(t, "make", cfg.Build.Command)
}

func TestLoadFromPaths_MissingFilesAreSkipped(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFromPaths(context.Background(), filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "none.yaml"))

	require.NoError(t, err)
	assert.Zero(t, cfg.Run.Jobs)
}

func TestLoadFromPaths_InvalidValue(t *testing.T) {
	isolateEnv(t)
	project := writeYAML(t, t.TempDir(), map[string]any{
		"bench": map[string]any{"repetitions": 0},
	})

	_, err := LoadFromPaths(context.Background(), project, "")

	require.ErrorIs(t, err, mqerrors.ErrConfigInvalidBench)
}

func TestLoadFromPaths_MalformedYAML(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("build: [unterminated\n"), 0o600))

	_, err := LoadFromPaths(context.Background(), path, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read project config")
}

func TestLoad_ExtraCFlagsFromEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("EXTRA_CFLAGS", "-O3 -march=native")

	cfg, err := LoadFromPaths(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "-O3 -march=native", cfg.Build.ExtraCFlags)

	t.Setenv("MQOMCTL_BUILD_EXTRA_CFLAGS", "-O1")

	cfg, err = LoadFromPaths(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "-O1", cfg.Build.ExtraCFlags, "prefixed variable wins")
}

func TestLoad_EnvironmentOverridesFiles(t *testing.T) {
	isolateEnv(t)
	project := writeYAML(t, t.TempDir(), map[string]any{"run": map[string]any{"jobs": 2}})
	t.Setenv("MQOMCTL_RUN_JOBS", "8")

	cfg, err := LoadFromPaths(context.Background(), project, "")

	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Run.Jobs)
}

func TestLoad_DiscoversProjectConfig(t *testing.T) {
	isolateEnv(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".mqomctl"), 0o750))
	writeYAML(t, filepath.Join(root, ".mqomctl"), map[string]any{
		"profiler": map[string]any{"max_stackframe": 42},
	})
	t.Chdir(root)

	cfg, err := Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Profiler.MaxStackframe)
}

func TestLoadFile_Missing(t *testing.T) {
	isolateEnv(t)

	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))

	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithOverrides(t *testing.T) {
	isolateEnv(t)
	path := writeYAML(t, t.TempDir(), map[string]any{
		"bench": map[string]any{"repetitions": 20, "memory": true},
	})

	cfg, err := LoadWithOverrides(context.Background(), path, &Config{
		Build: BuildConfig{OutputDir: "out"},
		Run:   RunConfig{Jobs: -1, FailFast: true},
		Test:  TestConfig{CompareKAT: "ref.zip"},
	})

	require.NoError(t, err)
	assert.Equal(t, "out", cfg.Build.OutputDir)
	assert.Equal(t, -1, cfg.Run.Jobs)
	assert.True(t, cfg.Run.FailFast)
	assert.Equal(t, 20, cfg.Bench.Repetitions, "zero overrides keep loaded values")
	assert.True(t, cfg.Bench.Memory, "false overrides keep loaded booleans")
	assert.Equal(t, "ref.zip", cfg.Test.CompareKAT)
}

func TestLoadWithOverrides_RevalidatesOverrides(t *testing.T) {
	isolateEnv(t)

	_, err := LoadWithOverrides(context.Background(), "", &Config{
		Build: BuildConfig{CopyExtensions: []string{"c"}},
	})

	require.ErrorIs(t, err, mqerrors.ErrConfigInvalidBuild)
}
