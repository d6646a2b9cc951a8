// Package kat runs the known-answer-test executables of a variant and
// compares their output against a reference corpus.
package kat

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrz1836/mqomctl/internal/build"
	"github.com/mrz1836/mqomctl/internal/command"
	"github.com/mrz1836/mqomctl/internal/constants"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/matrix"
)

// MismatchError reports a generated response file that differs from the
// reference one.
type MismatchError struct {
	Reference string
	Generated string
	// Offset is the first differing byte.
	Offset int64
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s differs from %s at byte %d", mqerrors.ErrKATMismatch, e.Generated, e.Reference, e.Offset)
}

// Unwrap returns ErrKATMismatch.
func (e *MismatchError) Unwrap() error {
	return mqerrors.ErrKATMismatch
}

// Outcome summarizes one successful verification.
type Outcome struct {
	Request   string `json:"request"`
	Response  string `json:"response"`
	Checked   bool   `json:"checked"`
	Reference string `json:"reference,omitempty"`
}

// Verifier runs the KAT generator and checker of a variant.
type Verifier struct {
	exec *command.Executor

	// SkipCheck disables the checker step.
	SkipCheck bool
	// Reference, when set, enables the byte comparison step.
	Reference *Reference
}

// NewVerifier creates a Verifier.
func NewVerifier(exec *command.Executor, ref *Reference, skipCheck bool) *Verifier {
	return &Verifier{exec: exec, Reference: ref, SkipCheck: skipCheck}
}

// Verify runs the generator in dir, checks the request/response pair named
// after skSize exists, runs the checker unless skipped, and compares the
// response against the reference when one is configured. Every failure is
// final.
func (k *Verifier) Verify(ctx context.Context, v matrix.Variant, dir string, skSize int64) (*Outcome, error) {
	log := zerolog.Ctx(ctx).With().Str("variant", v.Label()).Logger()

	res, err := k.exec.Run(ctx, dir, nil, "./"+build.Executable(v, build.ArtifactKATGen))
	if err != nil {
		return nil, mqerrors.Wrapf(err, "%s: kat generation", v.Label())
	}
	if res.Failed() {
		return nil, fmt.Errorf("%s: kat generation: %s: %w", v.Label(), strings.TrimSpace(res.Stderr), mqerrors.ErrExecutableFailed)
	}

	out := &Outcome{
		Request:  filepath.Join(dir, fmt.Sprintf(constants.KATRequestTemplate, skSize)),
		Response: filepath.Join(dir, fmt.Sprintf(constants.KATResponseTemplate, skSize)),
	}
	for _, p := range []string{out.Request, out.Response} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", v.Label(), p, mqerrors.ErrKATMissing)
		}
	}
	log.Info().Msg("kat generation ok")

	if !k.SkipCheck {
		res, err := k.exec.Run(ctx, dir, nil, "./"+build.Executable(v, build.ArtifactKATCheck))
		if err != nil {
			return nil, mqerrors.Wrapf(err, "%s: kat check", v.Label())
		}
		if res.Failed() || !strings.Contains(res.Stdout, constants.KATCheckSuccessMarker) {
			return nil, fmt.Errorf("%s: %s: %w", v.Label(), checkDetail(res), mqerrors.ErrKATCheckFailed)
		}
		out.Checked = true
		log.Info().Msg("kat check ok")
	}

	if k.Reference != nil {
		ref, err := k.Reference.Resolve(v, skSize)
		if err != nil {
			return nil, err
		}
		if err := CompareFiles(ref, out.Response); err != nil {
			return nil, mqerrors.Wrapf(err, "%s", v.Label())
		}
		out.Reference = ref
		log.Info().Str("reference", ref).Msg("kat matches reference")
	}

	return out, nil
}

func checkDetail(res *command.Result) string {
	if res.Stderr != "" {
		return strings.TrimSpace(res.Stderr)
	}
	return "success marker not found"
}

// CompareFiles reports nil when the two files are byte-identical and a
// *MismatchError otherwise.
func CompareFiles(reference, generated string) error {
	ref, err := os.Open(reference) //#nosec G304 -- resolved reference path
	if err != nil {
		return err
	}
	defer ref.Close() //nolint:errcheck // read-only file

	gen, err := os.Open(generated) //#nosec G304 -- generated file inside the variant directory
	if err != nil {
		return err
	}
	defer gen.Close() //nolint:errcheck // read-only file

	offset, equal, err := compareReaders(bufio.NewReader(ref), bufio.NewReader(gen))
	if err != nil {
		return err
	}
	if !equal {
		return &MismatchError{Reference: reference, Generated: generated, Offset: offset}
	}
	return nil
}

func compareReaders(a, b io.Reader) (offset int64, equal bool, err error) {
	const chunk = 32 * 1024
	bufA := make([]byte, chunk)
	bufB := make([]byte, chunk)

	for {
		na, errA := io.ReadFull(a, bufA)
		nb, errB := io.ReadFull(b, bufB)
		if readFailed(errA) {
			return offset, false, errA
		}
		if readFailed(errB) {
			return offset, false, errB
		}

		n := min(na, nb)
		if i := firstDiff(bufA[:n], bufB[:n]); i >= 0 {
			return offset + int64(i), false, nil
		}
		if na != nb {
			return offset + int64(n), false, nil
		}
		offset += int64(n)
		if na < chunk {
			return offset, true, nil
		}
	}
}

func readFailed(err error) bool {
	return err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF)
}

func firstDiff(a, b []byte) int {
	if bytes.Equal(a, b) {
		return -1
	}
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}
