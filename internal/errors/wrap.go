package errors

import "fmt"

// Wrap adds context to errors at package boundaries.
// It returns nil if err is nil, allowing for safe inline usage.
//
// The wrapped error preserves the original error chain, so sentinel checks
// keep working after the harness adds context:
//
//	if err := driver.Build(ctx, v, dir); err != nil {
//	    return errors.Wrap(err, "failed to build "+v.Label())
//	}
//
//	if errors.Is(err, errors.ErrBuildFailed) {
//	    // toolchain wrote to stderr
//	}
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf adds formatted context to errors at package boundaries.
// It returns nil if err is nil.
//
//	return errors.Wrapf(err, "variant %s: kat generation", label)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", msg, err)
}
