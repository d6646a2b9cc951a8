package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolateEnv points HOME at a temp dir and clears the variables that feed
// configuration, so tests never read the developer's setup.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"EXTRA_CFLAGS", "MQOMCTL_BUILD_EXTRA_CFLAGS", "MQOMCTL_RUN_JOBS", "MQOMCTL_OUTPUT", "NO_COLOR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	return home
}

// runCLI executes the root command with args and returns everything it
// printed.
func runCLI(t *testing.T, deps *appDeps, args ...string) (string, error) {
	t.Helper()
	if deps == nil {
		deps = &appDeps{}
	}
	if deps.logWriter == nil {
		deps.logWriter = io.Discard
	}
	if deps.now == nil {
		deps.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	}

	cmd := newRootCmd(&GlobalFlags{}, BuildInfo{Version: "1.2.3"}, deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes cfg as YAML into dir and returns its path.
func writeConfig(t *testing.T, dir string, cfg map[string]any) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// projectLayout creates a source tree with a Makefile and returns a config
// file pointing every directory into the temp area.
func projectLayout(t *testing.T, extra map[string]any) (cfgPath, buildDir, statsDir string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Makefile"), []byte("all:\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sign.c"), []byte("int x;\n"), 0o600))

	buildDir = filepath.Join(root, "build")
	statsDir = filepath.Join(root, "stats")
	build := map[string]any{
		"source_dir": src,
		"output_dir": buildDir,
		"temp_dir":   filepath.Join(root, "tmp"),
	}
	cfg := map[string]any{
		"build": build,
		"bench": map[string]any{"stats_dir": statsDir},
	}
	for k, v := range extra {
		if k == "build" {
			for bk, bv := range v.(map[string]any) {
				build[bk] = bv
			}
			continue
		}
		cfg[k] = v
	}
	return writeConfig(t, root, cfg), buildDir, statsDir
}
