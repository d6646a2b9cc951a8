// Package config provides configuration management for mqomctl.
//
// Configuration is layered. From highest to lowest precedence:
//  1. CLI flags
//  2. Environment variables (MQOMCTL_* prefix, plus EXTRA_CFLAGS)
//  3. Project config (.mqomctl/config.yaml)
//  4. Global config (~/.mqomctl/config.yaml)
//  5. Built-in defaults
//
// IMPORTANT: This package must not import any other internal packages
// except constants and errors.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	// Build holds toolchain and working copy settings.
	Build BuildConfig `yaml:"build" mapstructure:"build"`

	// Run holds settings shared by every pipeline.
	Run RunConfig `yaml:"run" mapstructure:"run"`

	// Bench holds benchmark pipeline settings.
	Bench BenchConfig `yaml:"bench" mapstructure:"bench"`

	// Test holds test pipeline settings.
	Test TestConfig `yaml:"test" mapstructure:"test"`

	// Profiler holds memory profiler settings.
	Profiler ProfilerConfig `yaml:"profiler" mapstructure:"profiler"`
}

// BuildConfig contains compilation settings.
type BuildConfig struct {
	// Command is the build tool invoked for every artifact.
	Command string `yaml:"command" mapstructure:"command" validate:"required"`

	// SourceDir is the project tree copied for each compiled variant.
	SourceDir string `yaml:"source_dir" mapstructure:"source_dir" validate:"required"`

	// OutputDir is the build folder holding one directory per variant.
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir" validate:"required"`

	// TempDir is where working copies are created. Empty means the
	// system temporary directory.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`

	// ExtraCFlags are the operator compiler flags, before variant rewriting.
	ExtraCFlags string `yaml:"extra_cflags" mapstructure:"extra_cflags"`

	// CopyExtensions are the file extensions copied into working copies.
	CopyExtensions []string `yaml:"copy_extensions" mapstructure:"copy_extensions" validate:"dive,startswith=."`

	// CopyFiles are exact file names copied into working copies.
	CopyFiles []string `yaml:"copy_files" mapstructure:"copy_files" validate:"dive,required"`

	// SkipDirs are relative directories never copied.
	SkipDirs []string `yaml:"skip_dirs" mapstructure:"skip_dirs"`
}

// RunConfig contains scheduling settings.
type RunConfig struct {
	// Jobs is the number of variants processed concurrently.
	// 0 runs sequentially in selection order, a negative value uses every CPU.
	Jobs int `yaml:"jobs" mapstructure:"jobs"`

	// Timeout bounds every external command. Zero disables it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// FailFast stops the remaining variants after the first failure.
	FailFast bool `yaml:"fail_fast" mapstructure:"fail_fast"`
}

// BenchConfig contains benchmark pipeline settings.
type BenchConfig struct {
	// Repetitions is the argument passed to every bench executable.
	Repetitions int `yaml:"repetitions" mapstructure:"repetitions" validate:"gt=0"`

	// StatsDir receives timestamped results files.
	StatsDir string `yaml:"stats_dir" mapstructure:"stats_dir" validate:"required"`

	// Memory enables the massif peak memory probes.
	Memory bool `yaml:"memory" mapstructure:"memory"`
}

// TestConfig contains test pipeline settings.
type TestConfig struct {
	// Repetitions is the argument passed to every bench executable.
	Repetitions int `yaml:"repetitions" mapstructure:"repetitions" validate:"gt=0"`

	// CompareKAT is a reference KAT folder or archive. Empty disables
	// the comparison.
	CompareKAT string `yaml:"compare_kat" mapstructure:"compare_kat"`

	// NoKATCheck skips the KAT checker executable.
	NoKATCheck bool `yaml:"no_kat_check" mapstructure:"no_kat_check"`

	// NoValgrind skips the memcheck step.
	NoValgrind bool `yaml:"no_valgrind" mapstructure:"no_valgrind"`
}

// ProfilerConfig contains valgrind settings.
type ProfilerConfig struct {
	// Command is the profiler binary.
	Command string `yaml:"command" mapstructure:"command" validate:"required"`

	// MaxStackframe is passed as --max-stackframe.
	MaxStackframe int `yaml:"max_stackframe" mapstructure:"max_stackframe" validate:"gt=0"`
}
