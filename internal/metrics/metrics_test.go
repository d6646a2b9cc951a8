package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/mqomctl/internal/metrics"
)

func TestRecorder_Counts(t *testing.T) {
	r := metrics.NewRecorder()

	r.ObserveVariant("bench", false, 2*time.Second)
	r.ObserveVariant("bench", false, time.Second)
	r.ObserveVariant("bench", true, time.Second)
	r.CountCommand("bench")
	r.CountRecord()
	r.SetPeakMemory("cat1_gf2_short_r3", "sign", 4096)

	count, err := promtest.GatherAndCount(r.Registry(), "mqomctl_variants_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per outcome")

	count, err = promtest.GatherAndCount(r.Registry(), "mqomctl_variants_total", "mqomctl_results_records_total", "mqomctl_peak_memory_bytes")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := metrics.NewRecorder()
	r.ObserveVariant("compile", false, time.Second)
	r.CountRecord()
	path := filepath.Join(t.TempDir(), "mqomctl.prom")

	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path) //#nosec G304 -- test temp dir
	require.NoError(t, err)
	assert.Contains(t, string(data), `mqomctl_variants_total{outcome="ok",pipeline="compile"} 1`)
	assert.Contains(t, string(data), "mqomctl_results_records_total 1")
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *metrics.Recorder

	assert.NotPanics(t, func() {
		r.ObserveVariant("test", true, time.Second)
		r.CountCommand("kat")
		r.CountRecord()
		r.SetPeakMemory("x", "keygen", 1)
	})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
}
