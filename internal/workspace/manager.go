// Package workspace creates and tracks isolated working copies of the
// source tree, one per concurrently compiled variant.
//
// Every copy created through a Manager is registered and removed by
// Cleanup, including on interrupt.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/mqomctl/internal/constants"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
)

// Manager creates working copies under a temp base directory.
type Manager struct {
	source   string
	tempBase string
	filter   Filter

	mu      sync.Mutex
	created map[string]struct{}
}

// NewManager returns a Manager copying source into tempBase.
// An empty tempBase means os.TempDir().
func NewManager(source, tempBase string, filter Filter) (*Manager, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, mqerrors.ErrSourceTreeMissing)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", source, mqerrors.ErrSourceTreeMissing)
	}
	if tempBase == "" {
		tempBase = os.TempDir()
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source tree: %w", err)
	}

	return &Manager{
		source:   abs,
		tempBase: tempBase,
		filter:   filter,
		created:  make(map[string]struct{}),
	}, nil
}

// Source returns the absolute path of the source tree.
func (m *Manager) Source() string {
	return m.source
}

// Create copies the filtered source tree into a fresh directory named after
// label and registers it for cleanup.
func (m *Manager) Create(ctx context.Context, label string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(m.tempBase, constants.DirPerm); err != nil {
		return "", fmt.Errorf("failed to create temp base: %w", err)
	}
	dir, err := os.MkdirTemp(m.tempBase, constants.WorkCopyPrefix+label+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create working copy for %s: %w", label, err)
	}

	m.mu.Lock()
	m.created[dir] = struct{}{}
	m.mu.Unlock()

	n, err := copyTree(ctx, m.source, dir, m.filter)
	if err != nil {
		return dir, fmt.Errorf("failed to copy source tree for %s: %w", label, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("variant", label).
		Str("path", dir).
		Int("files", n).
		Msg("created working copy")

	return dir, nil
}

// Remove deletes one working copy and unregisters it.
func (m *Manager) Remove(ctx context.Context, dir string) error {
	m.mu.Lock()
	delete(m.created, dir)
	m.mu.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", dir).Msg("failed to remove working copy")
		return err
	}
	return nil
}

// Cleanup removes every registered working copy. It always attempts every
// removal and only logs failures.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	dirs := make([]string, 0, len(m.created))
	for d := range m.created {
		dirs = append(dirs, d)
	}
	m.created = make(map[string]struct{})
	m.mu.Unlock()

	for _, d := range dirs {
		if err := os.RemoveAll(d); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", d).Msg("cleanup warning")
		}
	}
}

// Active returns the number of registered working copies.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

// RemoveStale deletes working copies and reference extractions left under
// the temp base by runs that never reached their cleanup, and returns the
// removed paths. Copies registered with this Manager are kept.
func (m *Manager) RemoveStale(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(m.tempBase, constants.WorkCopyPrefix+"*"))
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for _, p := range matches {
		if _, live := m.created[p]; live {
			continue
		}
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("path", p).Msg("failed to remove stale working copy")
			continue
		}
		removed = append(removed, p)
	}
	return removed, nil
}
