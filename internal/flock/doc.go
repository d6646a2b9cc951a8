// Package flock provides non-blocking exclusive file locks on Unix and
// Windows. The results sink uses it so two harness processes never append
// to the same results file.
//
//	f, err := flock.OpenLocked(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
//	if errors.Is(err, flock.ErrLocked) {
//	    // another process holds the file
//	}
//	defer flock.Release(f)
package flock

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked is returned when the lock is held by someone else.
var ErrLocked = errors.New("file is locked by another process")

// OpenLocked opens path and takes an exclusive lock on it. The file is
// closed again when the lock cannot be acquired.
func OpenLocked(path string, flag int, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm) //#nosec G304 -- caller-controlled path
	if err != nil {
		return nil, err
	}
	if err := Exclusive(f.Fd()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w: %w", path, ErrLocked, err)
	}
	return f, nil
}

// Release unlocks and closes f.
func Release(f *os.File) error {
	if f == nil {
		return nil
	}
	unlockErr := Unlock(f.Fd())
	closeErr := f.Close()
	return errors.Join(unlockErr, closeErr)
}
