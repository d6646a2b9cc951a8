package config

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mrz1836/mqomctl/internal/constants"
	"github.com/mrz1836/mqomctl/internal/errors"
)

// envPrefix scopes the environment variables read by viper.
const envPrefix = "MQOMCTL"

// newViperInstance creates a new Viper instance with the standard
// environment prefix (MQOMCTL_), key replacer and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The build scripts read EXTRA_CFLAGS directly, so honor it as a fallback.
	_ = v.BindEnv("build.extra_cflags", envPrefix+"_BUILD_EXTRA_CFLAGS", constants.EnvExtraCFlags)
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config struct and validates it.
func unmarshalAndValidate(ctx context.Context, v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("build.source_dir", cfg.Build.SourceDir).
		Str("build.output_dir", cfg.Build.OutputDir).
		Int("run.jobs", cfg.Run.Jobs).
		Dur("run.timeout", cfg.Run.Timeout).
		Msg("configuration loaded and unmarshaled")

	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (MQOMCTL_* prefix)
//  2. Project config (.mqomctl/config.yaml)
//  3. Global config (~/.mqomctl/config.yaml)
//  4. Built-in defaults
//
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	project := ProjectConfigPath()
	if !fileExists(project) {
		project = ""
	}
	global, _ := getGlobalConfigPathIfExists()
	return LoadFromPaths(ctx, project, global)
}

// LoadFile loads the global config and merges the explicit file at path
// over it. Unlike Load, a missing file is an error.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	if !fileExists(path) {
		return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
	}
	global, _ := getGlobalConfigPathIfExists()
	return LoadFromPaths(ctx, path, global)
}

// getGlobalConfigPathIfExists returns the global config path if it exists.
func getGlobalConfigPathIfExists() (string, bool) {
	globalDir, err := GlobalConfigDir()
	if err != nil {
		return "", false
	}

	globalConfigPath := filepath.Join(globalDir, constants.ConfigFileName)
	if !fileExists(globalConfigPath) {
		return "", false
	}
	return globalConfigPath, true
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadFromPaths loads configuration from specific file paths.
//
// projectConfigPath is the path to project-level config (higher priority).
// globalConfigPath is the path to global config (lower priority).
// Either path can be empty to skip that level.
func LoadFromPaths(ctx context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(ctx, v)
}

// LoadWithOverrides loads configuration and applies CLI flag overrides,
// which have the highest precedence. An empty path uses Load discovery,
// otherwise LoadFile.
//
// Only non-zero values in overrides are applied.
func LoadWithOverrides(ctx context.Context, path string, overrides *Config) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg, err = Load(ctx)
	} else {
		cfg, err = LoadFile(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("build.command", d.Build.Command)
	v.SetDefault("build.source_dir", d.Build.SourceDir)
	v.SetDefault("build.output_dir", d.Build.OutputDir)
	v.SetDefault("build.temp_dir", d.Build.TempDir)
	v.SetDefault("build.extra_cflags", d.Build.ExtraCFlags)
	v.SetDefault("build.copy_extensions", d.Build.CopyExtensions)
	v.SetDefault("build.copy_files", d.Build.CopyFiles)
	v.SetDefault("build.skip_dirs", d.Build.SkipDirs)

	v.SetDefault("run.jobs", d.Run.Jobs)
	v.SetDefault("run.timeout", d.Run.Timeout.String())
	v.SetDefault("run.fail_fast", d.Run.FailFast)

	v.SetDefault("bench.repetitions", d.Bench.Repetitions)
	v.SetDefault("bench.stats_dir", d.Bench.StatsDir)
	v.SetDefault("bench.memory", d.Bench.Memory)

	v.SetDefault("test.repetitions", d.Test.Repetitions)
	v.SetDefault("test.compare_kat", d.Test.CompareKAT)
	v.SetDefault("test.no_kat_check", d.Test.NoKATCheck)
	v.SetDefault("test.no_valgrind", d.Test.NoValgrind)

	v.SetDefault("profiler.command", d.Profiler.Command)
	v.SetDefault("profiler.max_stackframe", d.Profiler.MaxStackframe)
}

// applyOverrides merges non-zero override values into the config.
//
// IMPORTANT: Boolean fields cannot be overridden to false here because
// the zero value is indistinguishable from unset. CLI implementations
// handle boolean flags with cmd.Flags().Changed.
func applyOverrides(cfg, overrides *Config) {
	applyBuildOverrides(&cfg.Build, &overrides.Build)

	if overrides.Run.Jobs != 0 {
		cfg.Run.Jobs = overrides.Run.Jobs
	}
	if overrides.Run.Timeout != 0 {
		cfg.Run.Timeout = overrides.Run.Timeout
	}
	cfg.Run.FailFast = cfg.Run.FailFast || overrides.Run.FailFast

	if overrides.Bench.Repetitions != 0 {
		cfg.Bench.Repetitions = overrides.Bench.Repetitions
	}
	if overrides.Bench.StatsDir != "" {
		cfg.Bench.StatsDir = overrides.Bench.StatsDir
	}
	cfg.Bench.Memory = cfg.Bench.Memory || overrides.Bench.Memory

	if overrides.Test.Repetitions != 0 {
		cfg.Test.Repetitions = overrides.Test.Repetitions
	}
	if overrides.Test.CompareKAT != "" {
		cfg.Test.CompareKAT = overrides.Test.CompareKAT
	}
	cfg.Test.NoKATCheck = cfg.Test.NoKATCheck || overrides.Test.NoKATCheck
	cfg.Test.NoValgrind = cfg.Test.NoValgrind || overrides.Test.NoValgrind

	if overrides.Profiler.Command != "" {
		cfg.Profiler.Command = overrides.Profiler.Command
	}
	if overrides.Profiler.MaxStackframe != 0 {
		cfg.Profiler.MaxStackframe = overrides.Profiler.MaxStackframe
	}
}

func applyBuildOverrides(cfg, overrides *BuildConfig) {
	if overrides.Command != "" {
		cfg.Command = overrides.Command
	}
	if overrides.SourceDir != "" {
		cfg.SourceDir = overrides.SourceDir
	}
	if overrides.OutputDir != "" {
		cfg.OutputDir = overrides.OutputDir
	}
	if overrides.TempDir != "" {
		cfg.TempDir = overrides.TempDir
	}
	if overrides.ExtraCFlags != "" {
		cfg.ExtraCFlags = overrides.ExtraCFlags
	}
	if len(overrides.CopyExtensions) > 0 {
		cfg.CopyExtensions = overrides.CopyExtensions
	}
	if len(overrides.CopyFiles) > 0 {
		cfg.CopyFiles = overrides.CopyFiles
	}
	if len(overrides.SkipDirs) > 0 {
		cfg.SkipDirs = overrides.SkipDirs
	}
}

// viperDecoderOption returns the decoder option used when unmarshaling.
// Durations are written as strings ("90s", "5m") and lists set through the
// environment are comma separated.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}
