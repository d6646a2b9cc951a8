// Package constants provides centralized constant values used throughout mqomctl.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Scheme naming.
const (
	// SchemeName is the scheme's own name. Reference KAT corpora may store a
	// variant under "<SchemeName>_<label>" instead of the bare label.
	SchemeName = "mqom2"

	// ParamDefinePrefix marks compiler definitions that encode variant
	// parameters. Any token containing it is owned by the harness.
	ParamDefinePrefix = "-DMQOM2_PARAM_"
)

// Build environment variables passed to the toolchain.
const (
	// EnvExtraCFlags carries the variant's compiler definitions.
	EnvExtraCFlags = "EXTRA_CFLAGS"

	// EnvDestinationPath is the directory the toolchain writes artifacts into.
	EnvDestinationPath = "DESTINATION_PATH"

	// EnvPrefixExec is the artifact-name prefix (the variant label).
	EnvPrefixExec = "PREFIX_EXEC"
)

// Directory names used by mqomctl.
const (
	// Home is the hidden directory name where mqomctl stores global data.
	Home = ".mqomctl"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// DefaultBuildDir is the build folder relative to the source tree.
	DefaultBuildDir = "build"

	// DefaultStatsDir is the folder benchmark results are written into.
	DefaultStatsDir = "stats"

	// WorkCopyPrefix prefixes isolated working copies in the temp base.
	WorkCopyPrefix = "mqomctl-"
)

// KAT conventions.
const (
	// KATRequestTemplate names the generated request file, parameterized by
	// the secret-key size in bytes.
	KATRequestTemplate = "PQCsignKAT_%d.req"

	// KATResponseTemplate names the generated response file.
	KATResponseTemplate = "PQCsignKAT_%d.rsp"

	// KATCheckSuccessMarker is printed by the KAT checker on success.
	KATCheckSuccessMarker = "Everything is fine!"

	// KATFolderName is the folder holding per-variant reference KATs.
	KATFolderName = "KAT"

	// SubmissionPackagePattern matches the top-level folder of a reference archive.
	SubmissionPackagePattern = `submission_package_v2.*`
)

// Profiler conventions.
const (
	// DefaultProfilerCommand is the memory profiler executable.
	DefaultProfilerCommand = "valgrind"

	// DefaultMaxStackframe is passed as --max-stackframe to valgrind.
	DefaultMaxStackframe = 10000000

	// MemcheckSummaryMarker identifies the memcheck summary line.
	MemcheckSummaryMarker = "ERROR SUMMARY"
)

// Defaults for run configuration.
const (
	// DefaultBuildCommand is the external build tool.
	DefaultBuildCommand = "make"

	// DefaultBenchRepetitions is the bench command's default repetition count.
	DefaultBenchRepetitions = 100

	// DefaultTestRepetitions is the test command's default repetition count.
	DefaultTestRepetitions = 10

	// DefaultTimeout disables per-command timeouts.
	DefaultTimeout time.Duration = 0
)

// Log rotation settings for the CLI log file.
const (
	// LogMaxSizeMB is the maximum size in megabytes before rotation.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files to keep.
	LogMaxBackups = 3

	// LogMaxAgeDays is the maximum age in days of rotated files.
	LogMaxAgeDays = 28

	// LogCompress enables gzip compression of rotated files.
	LogCompress = true
)

// Permissions.
const (
	// DirPerm is used for directories the harness creates.
	DirPerm = 0o750

	// FilePerm is used for files the harness creates.
	FilePerm = 0o600
)
