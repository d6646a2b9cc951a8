package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/mqomctl/internal/errors"
)

const cat1Flags = "-DMQOM2_PARAM_SECURITY=128 -DMQOM2_PARAM_BASE_FIELD=4 -DMQOM2_PARAM_TRADEOFF=0 -DMQOM2_PARAM_NBROUNDS=5"

func TestEnv_PrintsExport(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, nil, "env", "cat1_gf16_fast_r5")

	require.NoError(t, err)
	assert.Equal(t, `export EXTRA_CFLAGS="`+cat1Flags+`"`+"\n", out)
}

func TestEnv_StripsConfiguredParameterFlags(t *testing.T) {
	isolateEnv(t)
	cfg := writeConfig(t, t.TempDir(), map[string]any{
		"build": map[string]any{"extra_cflags": "-O3 -DMQOM2_PARAM_SECURITY=256"},
	})

	out, err := runCLI(t, nil, "env", "cat1_gf16_fast_r5", "--config", cfg)

	require.NoError(t, err)
	assert.Equal(t, `export EXTRA_CFLAGS="-O3 `+cat1Flags+`"`+"\n", out)
}

func TestEnv_EnvironmentBaseFlags(t *testing.T) {
	isolateEnv(t)
	t.Setenv("EXTRA_CFLAGS", "-march=native")

	out, err := runCLI(t, nil, "env", "cat1_gf16_fast_r5")

	require.NoError(t, err)
	assert.Contains(t, out, `"-march=native `+cat1Flags+`"`)
}

func TestEnv_Full(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, nil, "env", "cat1_gf16_fast_r5", "--full")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "export DESTINATION_PATH="))
	assert.True(t, strings.HasSuffix(lines[1], `cat1_gf16_fast_r5"`))
	assert.Equal(t, `export PREFIX_EXEC="cat1_gf16_fast_r5"`, lines[2])
}

func TestEnv_JSON(t *testing.T) {
	isolateEnv(t)

	out, err := runCLI(t, nil, "env", "cat1_gf16_fast_r5", "-o", "json")

	require.NoError(t, err)
	var res envResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "cat1_gf16_fast_r5", res.Variant)
	assert.Equal(t, map[string]string{"EXTRA_CFLAGS": cat1Flags}, res.Env)
}

func TestEnv_RejectsPartialLabels(t *testing.T) {
	isolateEnv(t)

	for _, label := range []string{"cat1", "cat1_gf16", "cat9_gf16_fast_r5"} {
		_, err := runCLI(t, nil, "env", label)
		require.Error(t, err, label)
		assert.Equal(t, ExitInvalidInput, ExitCodeForError(err), label)
	}
}

func TestEnv_UnknownVariantSentinel(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, nil, "env", "cat1_gf16")

	require.ErrorIs(t, err, errors.ErrUnknownVariant)
}
