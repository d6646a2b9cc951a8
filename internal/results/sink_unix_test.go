//go:build unix

package results_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/results"
)

func TestSink_SecondOpenIsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	first, err := results.Open(path)
	require.NoError(t, err)

	_, err = results.Open(path)
	require.ErrorIs(t, err, mqerrors.ErrResultsLocked)

	require.NoError(t, first.Close())
	second, err := results.Open(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}
