package config

import (
	"github.com/mrz1836/mqomctl/internal/constants"
)

// DefaultConfig returns a Config populated with sensible default values.
// These defaults are used when no configuration file is present or
// when specific values are not set in the configuration.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			Command:        constants.DefaultBuildCommand,
			SourceDir:      ".",
			OutputDir:      constants.DefaultBuildDir,
			CopyExtensions: DefaultCopyExtensions(),
			CopyFiles:      DefaultCopyFiles(),
			SkipDirs:       DefaultSkipDirs(),
		},
		Run: RunConfig{
			Jobs:    0,
			Timeout: constants.DefaultTimeout,
		},
		Bench: BenchConfig{
			Repetitions: constants.DefaultBenchRepetitions,
			StatsDir:    constants.DefaultStatsDir,
		},
		Test: TestConfig{
			Repetitions: constants.DefaultTestRepetitions,
		},
		Profiler: ProfilerConfig{
			Command:       constants.DefaultProfilerCommand,
			MaxStackframe: constants.DefaultMaxStackframe,
		},
	}
}

// DefaultCopyExtensions returns the source extensions copied into working copies.
func DefaultCopyExtensions() []string {
	return []string{".h", ".c", ".inc", ".macros", ".S"}
}

// DefaultCopyFiles returns the exact file names copied into working copies.
func DefaultCopyFiles() []string {
	return []string{"Makefile", ".gitignore"}
}

// DefaultSkipDirs returns the directories never copied into working copies.
func DefaultSkipDirs() []string {
	return []string{".git", constants.DefaultBuildDir, constants.DefaultStatsDir}
}
