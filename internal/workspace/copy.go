package workspace

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrz1836/mqomctl/internal/constants"
)

// Filter selects which files of the source tree are copied.
type Filter struct {
	// Extensions are matched against filepath.Ext, including the dot.
	Extensions []string
	// Names are matched against the base name exactly.
	Names []string
	// SkipDirs are relative directory paths that are never descended into.
	SkipDirs []string
}

// DefaultFilter copies C sources, headers, assembly, make fragments,
// the Makefile and .gitignore.
func DefaultFilter() Filter {
	return Filter{
		Extensions: []string{".h", ".c", ".inc", ".macros", ".S"},
		Names:      []string{"Makefile", ".gitignore"},
		SkipDirs:   []string{".git", constants.DefaultBuildDir, constants.DefaultStatsDir},
	}
}

// Match reports whether a file with the given base name is copied.
func (f Filter) Match(name string) bool {
	for _, n := range f.Names {
		if n == name {
			return true
		}
	}
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	for _, e := range f.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (f Filter) skip(rel string) bool {
	for _, d := range f.SkipDirs {
		if rel == d || strings.HasPrefix(rel, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// copyTree copies every matching regular file from src into dst, creating
// directories only where a file lands. It returns the number of files copied.
func copyTree(ctx context.Context, src, dst string, filter Filter) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && filter.skip(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !filter.Match(d.Name()) {
			return nil
		}

		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), constants.DirPerm); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //#nosec G304 -- path comes from walking the configured source tree
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()) //#nosec G304 -- destination is inside the working copy
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
