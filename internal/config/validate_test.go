package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
)

func TestValidate_NilConfig(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), mqerrors.ErrConfigNil)
}

func TestValidate_DefaultConfig(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		wantKey string
	}{
		{
			name:    "empty build command",
			mutate:  func(c *Config) { c.Build.Command = "" },
			wantErr: mqerrors.ErrConfigInvalidBuild,
			wantKey: "build.command",
		},
		{
			name:    "extension without dot",
			mutate:  func(c *Config) { c.Build.CopyExtensions = []string{".c", "h"} },
			wantErr: mqerrors.ErrConfigInvalidBuild,
			wantKey: "build.copy_extensions[1]",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Run.Timeout = -time.Second },
			wantErr: mqerrors.ErrConfigInvalidRun,
			wantKey: "run.timeout",
		},
		{
			name:    "zero bench repetitions",
			mutate:  func(c *Config) { c.Bench.Repetitions = 0 },
			wantErr: mqerrors.ErrConfigInvalidBench,
			wantKey: "bench.repetitions",
		},
		{
			name:    "empty stats dir",
			mutate:  func(c *Config) { c.Bench.StatsDir = "" },
			wantErr: mqerrors.ErrConfigInvalidBench,
			wantKey: "bench.stats_dir",
		},
		{
			name:    "negative test repetitions",
			mutate:  func(c *Config) { c.Test.Repetitions = -3 },
			wantErr: mqerrors.ErrConfigInvalidTest,
			wantKey: "test.repetitions",
		},
		{
			name:    "zero stack frame",
			mutate:  func(c *Config) { c.Profiler.MaxStackframe = 0 },
			wantErr: mqerrors.ErrConfigInvalidProfiler,
			wantKey: "profiler.max_stackframe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestValidate_JobsAcceptNegative(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Run.Jobs = -1

	require.NoError(t, Validate(cfg))
}
