package kat

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/mqomctl/internal/constants"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/matrix"
)

// maxEntrySize bounds a single extracted archive entry.
const maxEntrySize = 1 << 30

//nolint:gochecknoglobals // Compiled once
var submissionPackage = regexp.MustCompile(constants.SubmissionPackagePattern)

// Reference is a resolved reference KAT corpus.
type Reference struct {
	// Source is the path the operator supplied.
	Source string
	// Dir is the KAT folder holding one subdirectory per variant.
	Dir string

	scratch string
}

// OpenReference resolves src into a KAT folder. A directory is used as is.
// A .zip, .tar.gz or .tgz archive is extracted into a fresh directory under
// scratchBase (os.TempDir() when empty) and searched for a submission
// package directory containing a KAT folder.
func OpenReference(ctx context.Context, src, scratchBase string) (*Reference, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", src, mqerrors.ErrKATSourceInvalid, err)
	}
	if info.IsDir() {
		return &Reference{Source: src, Dir: src}, nil
	}

	extract := archiveExtractor(src)
	if extract == nil {
		return nil, fmt.Errorf("%s: %w", src, mqerrors.ErrKATSourceInvalid)
	}

	if scratchBase == "" {
		scratchBase = os.TempDir()
	}
	if err := os.MkdirAll(scratchBase, constants.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	scratch, err := os.MkdirTemp(scratchBase, constants.WorkCopyPrefix+"kat-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	ref := &Reference{Source: src, scratch: scratch}

	if err := extract(ctx, src, scratch); err != nil {
		_ = ref.Close()
		return nil, fmt.Errorf("failed to extract %s: %w", src, err)
	}

	dir, err := findKATFolder(scratch)
	if err != nil {
		_ = ref.Close()
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	ref.Dir = dir

	zerolog.Ctx(ctx).Info().
		Str("archive", src).
		Str("kat_dir", dir).
		Msg("reference KAT folder found")

	return ref, nil
}

// Close removes the extraction directory, if any.
func (r *Reference) Close() error {
	if r == nil || r.scratch == "" {
		return nil
	}
	err := os.RemoveAll(r.scratch)
	r.scratch = ""
	return err
}

// Candidates returns the reference response paths tried for v, in order:
// the bare label first, then the label prefixed with the scheme name.
func (r *Reference) Candidates(v matrix.Variant, skSize int64) []string {
	name := fmt.Sprintf(constants.KATResponseTemplate, skSize)
	return []string{
		filepath.Join(r.Dir, v.Label(), name),
		filepath.Join(r.Dir, constants.SchemeName+"_"+v.Label(), name),
	}
}

// Resolve returns the first existing candidate for v.
func (r *Reference) Resolve(v matrix.Variant, skSize int64) (string, error) {
	candidates := r.Candidates(v, skSize)
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%s: tried %s: %w", v.Label(), strings.Join(candidates, ", "), mqerrors.ErrKATReferenceMissing)
}

type extractFunc func(ctx context.Context, archive, dst string) error

func archiveExtractor(path string) extractFunc {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractTarGz
	default:
		return nil
	}
}

// findKATFolder walks root breadth-first for the first directory matching
// the submission package pattern that holds a KAT folder.
func findKATFolder(root string) (string, error) {
	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if submissionPackage.MatchString(e.Name()) {
				kat := filepath.Join(p, constants.KATFolderName)
				if info, err := os.Stat(kat); err == nil && info.IsDir() {
					return kat, nil
				}
			}
			queue = append(queue, p)
		}
	}
	return "", mqerrors.ErrKATArchiveLayout
}

// safeJoin joins name under dst, rejecting entries that would escape it.
func safeJoin(dst, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", mqerrors.ErrUnsafeArchivePath, name)
	}
	return filepath.Join(dst, clean), nil
}

func extractZip(ctx context.Context, archive, dst string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}
	defer r.Close() //nolint:errcheck // zip reader close

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := safeJoin(dst, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, constants.DirPerm); err != nil {
				return err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			continue
		}
		if err := extractZipEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry: %w", err)
	}
	defer rc.Close() //nolint:errcheck // zip file close

	return writeEntry(target, rc)
}

func extractTarGz(ctx context.Context, archive, dst string) error {
	file, err := os.Open(archive) //#nosec G304 -- operator-supplied reference archive
	if err != nil {
		return err
	}
	defer file.Close() //nolint:errcheck // file close in reader

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzr.Close() //nolint:errcheck // gzip reader close

	tr := tar.NewReader(gzr)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := safeJoin(dst, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, constants.DirPerm); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr); err != nil {
				return err
			}
		}
	}
}

// writeEntry copies one archive entry to target. The copy is size-limited
// to guard against decompression bombs.
func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), constants.DirPerm); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fs.FileMode(constants.FilePerm)) //#nosec G304 -- target validated by safeJoin
	if err != nil {
		return err
	}
	n, err := io.CopyN(out, r, maxEntrySize+1)
	if err != nil && !errors.Is(err, io.EOF) {
		_ = out.Close()
		return err
	}
	if n > maxEntrySize {
		_ = out.Close()
		return fmt.Errorf("%s: entry exceeds %d bytes", target, int64(maxEntrySize))
	}
	return out.Close()
}
