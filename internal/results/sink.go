// Package results writes benchmark records incrementally into a single JSON
// array file.
//
// The file is valid JSON only after Close. Each Append is one critical
// section: marshal, separator, write, fsync. Appends from concurrent
// pipelines land in completion order.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mrz1836/mqomctl/internal/constants"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/flock"
)

// TimestampLayout names default results files.
const TimestampLayout = "20060102_150405"

// DefaultPath returns <dir>/<YYYYmmdd_HHMMSS>.json for now.
func DefaultPath(dir string, now time.Time) string {
	return filepath.Join(dir, now.Format(TimestampLayout)+".json")
}

// Sink is an append-only JSON array file guarded by an exclusive lock.
type Sink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	count  int
	closed bool
}

// Open creates (or truncates) path, locks it and writes the opening bracket.
// A file held by another process yields ErrResultsLocked.
func Open(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	// Truncate only once the lock is ours.
	f, err := flock.OpenLocked(path, os.O_RDWR|os.O_CREATE, constants.FilePerm)
	if errors.Is(err, flock.ErrLocked) {
		return nil, fmt.Errorf("%s: %w", path, mqerrors.ErrResultsLocked)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}

	s := &Sink{path: path, file: f}
	if err := f.Truncate(0); err != nil {
		_ = flock.Release(f)
		return nil, fmt.Errorf("failed to truncate results file: %w", err)
	}
	if err := s.write([]byte("[")); err != nil {
		_ = flock.Release(f)
		return nil, err
	}
	return s, nil
}

// Path returns the results file path.
func (s *Sink) Path() string {
	return s.path
}

// Count returns the number of appended records.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Append marshals rec and adds it to the array.
func (s *Sink) Append(rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return mqerrors.ErrResultsClosed
	}
	if s.count > 0 {
		data = append([]byte(","), data...)
	}
	if err := s.write(data); err != nil {
		return err
	}
	s.count++
	return nil
}

// Close writes the closing bracket and releases the lock. Subsequent calls
// are no-ops.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	writeErr := s.write([]byte("]"))
	return errors.Join(writeErr, flock.Release(s.file))
}

func (s *Sink) write(data []byte) error {
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync results file: %w", err)
	}
	return nil
}
