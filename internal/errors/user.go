package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// A slice rather than a map so that wrapped errors resolve via errors.Is in order.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	// ===================
	// Selection
	// ===================
	{
		err: ErrInvalidSelector,
		info: ErrorInfo{
			Message: "Unrecognized variant selector.",
			Action:  "Run 'mqomctl matrix' to list valid selectors.",
		},
	},
	{
		err: ErrUnknownVariant,
		info: ErrorInfo{
			Message: "No variant has this label.",
			Action:  "Use a fully-qualified label such as cat1_gf16_fast_r5.",
		},
	},
	{
		err: ErrNoVariants,
		info: ErrorInfo{
			Message: "The selectors matched no variant.",
			Action:  "Run 'mqomctl matrix <selector>' to preview a selection.",
		},
	},

	// ===================
	// Build
	// ===================
	{
		err: ErrBuildFailed,
		info: ErrorInfo{
			Message: "The toolchain reported errors while building a variant.",
			Action:  "Re-run with --only-print to get the exact invocation and run it by hand.",
		},
	},
	{
		err: ErrBuildFolderMissing,
		info: ErrorInfo{
			Message: "The build folder does not exist.",
			Action:  "Run 'mqomctl compile <selectors>' first, or pass --build-folder.",
		},
	},
	{
		err: ErrSourceTreeMissing,
		info: ErrorInfo{
			Message: "The source tree to build could not be found.",
			Action:  "Set build.source_dir in .mqomctl/config.yaml.",
		},
	},

	// ===================
	// Benchmark
	// ===================
	{
		err: ErrParse,
		info: ErrorInfo{
			Message: "The benchmark output is missing a required line.",
			Action:  "Run the variant's _bench executable by hand and compare its output.",
		},
	},
	{
		err: ErrCorrectnessMismatch,
		info: ErrorInfo{
			Message: "Some benchmark repetitions failed.",
			Action:  "Run the variant's _bench executable by hand to see which primitive fails.",
		},
	},
	{
		err: ErrExecutableFailed,
		info: ErrorInfo{
			Message: "A built executable wrote to its error stream.",
		},
	},
	{
		err: ErrProfilerFailed,
		info: ErrorInfo{
			Message: "The memory profiler failed.",
			Action:  "Check that valgrind is installed, or run without --memory.",
		},
	},

	// ===================
	// KAT
	// ===================
	{
		err: ErrKATMissing,
		info: ErrorInfo{
			Message: "KAT generation did not produce the expected request/response files.",
		},
	},
	{
		err: ErrKATCheckFailed,
		info: ErrorInfo{
			Message: "The KAT checker did not report success.",
			Action:  "Re-run with --verbose to see the checker output.",
		},
	},
	{
		err: ErrKATReferenceMissing,
		info: ErrorInfo{
			Message: "The reference corpus has no response file for this variant.",
		},
	},
	{
		err: ErrKATMismatch,
		info: ErrorInfo{
			Message: "Generated KAT differs from the reference KAT.",
			Action:  "Diff the two files named in the error.",
		},
	},
	{
		err: ErrKATArchiveLayout,
		info: ErrorInfo{
			Message: "The reference archive has no submission package with a KAT folder.",
		},
	},
	{
		err: ErrKATSourceInvalid,
		info: ErrorInfo{
			Message: "The reference KAT source is neither a folder nor a supported archive.",
			Action:  "Pass a KAT folder, a .zip, or a .tar.gz file to --compare-kat.",
		},
	},

	// ===================
	// Runtime
	// ===================
	{
		err: ErrCommandTimeout,
		info: ErrorInfo{
			Message: "An external command exceeded its timeout.",
			Action:  "Increase run.timeout or set it to 0 to disable it.",
		},
	},
	{
		err: ErrResultsLocked,
		info: ErrorInfo{
			Message: "Another mqomctl process is writing this results file.",
			Action:  "Wait for it to finish or pass a different --results path.",
		},
	},
	{
		err: ErrToolsMissing,
		info: ErrorInfo{
			Message: "A required tool is missing or too old.",
			Action:  "Install the tools listed above or point build.command and profiler.command at them.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
}

//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup
var errorInfoMap = buildErrorInfoMap()

func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// Direct sentinels hit the map; wrapped errors fall back to errors.Is traversal.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve the issue. The action may be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
