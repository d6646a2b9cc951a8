// Package errors provides centralized error handling for mqomctl.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the harness. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrInvalidSelector indicates a selector token outside the closed vocabulary
	// (all, <cat>, <cat>_<field>, <cat>_<field>_<tradeoff>, full label).
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrUnknownVariant indicates a fully-qualified label that names no variant.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrNoVariants indicates that the supplied selectors matched no variant.
	ErrNoVariants = errors.New("no variants selected")

	// ErrBuildFailed indicates that the toolchain wrote to its error stream.
	ErrBuildFailed = errors.New("build failed")

	// ErrBuildFolderMissing indicates that the build output folder does not exist.
	ErrBuildFolderMissing = errors.New("build folder does not exist")

	// ErrSourceTreeMissing indicates that the source tree to copy does not exist.
	ErrSourceTreeMissing = errors.New("source tree not found")

	// ErrParse indicates that no line of an executable's output matched a
	// required field pattern.
	ErrParse = errors.New("benchmark output parse error")

	// ErrCorrectnessMismatch indicates that the benchmark correctness counter
	// differs from the requested repetition count.
	ErrCorrectnessMismatch = errors.New("correctness mismatch")

	// ErrExecutableFailed indicates that a produced executable wrote to its
	// error stream.
	ErrExecutableFailed = errors.New("executable reported errors")

	// ErrKATMissing indicates that the KAT generator did not create the
	// expected request/response files.
	ErrKATMissing = errors.New("kat files missing")

	// ErrKATCheckFailed indicates that the KAT checker did not report success.
	ErrKATCheckFailed = errors.New("kat check failed")

	// ErrKATReferenceMissing indicates that the reference corpus has no
	// response file for the variant.
	ErrKATReferenceMissing = errors.New("reference kat file not found")

	// ErrKATMismatch indicates that the generated response file differs from
	// the reference one.
	ErrKATMismatch = errors.New("kat mismatch with reference")

	// ErrKATArchiveLayout indicates that a reference archive does not contain a
	// submission package with a KAT folder.
	ErrKATArchiveLayout = errors.New("invalid reference kat archive")

	// ErrKATSourceInvalid indicates that the reference source is neither a
	// directory nor a supported archive.
	ErrKATSourceInvalid = errors.New("invalid reference kat source")

	// ErrUnsafeArchivePath indicates an archive entry that would escape the
	// extraction directory.
	ErrUnsafeArchivePath = errors.New("unsafe path in archive")

	// ErrProfilerFailed indicates that the memory profiler wrote to its error
	// stream or produced no snapshot.
	ErrProfilerFailed = errors.New("memory profiler failed")

	// ErrCommandTimeout indicates a command exceeded its timeout duration.
	ErrCommandTimeout = errors.New("command timeout exceeded")

	// ErrInterrupted indicates the run was stopped by an operator interrupt.
	// It is reported as a graceful shutdown, not a failure.
	ErrInterrupted = errors.New("run interrupted")

	// ErrResultsLocked indicates that another process holds the results file.
	ErrResultsLocked = errors.New("results file is locked by another process")

	// ErrResultsClosed indicates an append to an already closed results sink.
	ErrResultsClosed = errors.New("results sink closed")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidBuild indicates an invalid build configuration value.
	ErrConfigInvalidBuild = errors.New("invalid build configuration")

	// ErrConfigInvalidRun indicates an invalid run configuration value.
	ErrConfigInvalidRun = errors.New("invalid run configuration")

	// ErrConfigInvalidBench indicates an invalid bench configuration value.
	ErrConfigInvalidBench = errors.New("invalid bench configuration")

	// ErrConfigInvalidTest indicates an invalid test configuration value.
	ErrConfigInvalidTest = errors.New("invalid test configuration")

	// ErrConfigInvalidProfiler indicates an invalid profiler configuration value.
	ErrConfigInvalidProfiler = errors.New("invalid profiler configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrToolsMissing indicates a required external tool is missing or outdated.
	ErrToolsMissing = errors.New("required tools missing")

	// ErrCommandNotConfigured indicates that a mock command was not configured in tests.
	ErrCommandNotConfigured = errors.New("command not configured")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
