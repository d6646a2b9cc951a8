package kat_test

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/mqomctl/internal/command"
	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/kat"
	"github.com/mrz1836/mqomctl/internal/matrix"
	"github.com/mrz1836/mqomctl/internal/testutil"
)

const (
	label   = "cat1_gf16_fast_r5"
	skSize  = 104
	rspName = "PQCsignKAT_104.rsp"
	reqName = "PQCsignKAT_104.req"
	rspBody = "# MQOM2-L1\n\ncount = 0\nseed = 061550234D158C5E\n"
)

func variant(t *testing.T) matrix.Variant {
	t.Helper()
	v, err := matrix.Lookup(label)
	require.NoError(t, err)
	return v
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// katGenerator writes the request/response pair like the real generator.
func katGenerator(rsp string) testutil.Response {
	return testutil.Response{
		Stdout: "Generating KAT\n",
		Effect: func(workDir string, _ []string) error {
			if err := os.WriteFile(filepath.Join(workDir, reqName), []byte("count = 0\n"), 0o600); err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(workDir, rspName), []byte(rsp), 0o600)
		},
	}
}

func okChecker() testutil.Response {
	return testutil.Response{Stdout: "Checking KAT...\r\nEverything is fine!\r\n"}
}

func TestCompareFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.rsp")
	b := filepath.Join(dir, "b.rsp")
	c := filepath.Join(dir, "c.rsp")
	d := filepath.Join(dir, "d.rsp")
	writeFile(t, a, rspBody)
	writeFile(t, b, rspBody)
	writeFile(t, c, rspBody[:10]+"X"+rspBody[11:])
	writeFile(t, d, rspBody+"extra")

	require.NoError(t, kat.CompareFiles(a, b), "identical files match")

	err := kat.CompareFiles(a, c)
	require.ErrorIs(t, err, mqerrors.ErrKATMismatch)
	var mm *kat.MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, a, mm.Reference)
	assert.Equal(t, c, mm.Generated)
	assert.Equal(t, int64(10), mm.Offset)
	assert.Contains(t, err.Error(), a)
	assert.Contains(t, err.Error(), c)

	err = kat.CompareFiles(a, d)
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, int64(len(rspBody)), mm.Offset, "a strict prefix differs at its end")

	require.ErrorIs(t, kat.CompareFiles(a, filepath.Join(dir, "missing")), os.ErrNotExist)
}

func TestCompareFiles_Large(t *testing.T) {
	dir := t.TempDir()
	big := make([]byte, 100*1024)
	for i := range big {
		big[i] = byte(i % 251)
	}
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, big, 0o600))
	require.NoError(t, os.WriteFile(b, big, 0o600))
	require.NoError(t, kat.CompareFiles(a, b))

	big[70000] ^= 1
	require.NoError(t, os.WriteFile(b, big, 0o600))
	var mm *kat.MismatchError
	require.ErrorAs(t, kat.CompareFiles(a, b), &mm)
	assert.Equal(t, int64(70000), mm.Offset)
}

func TestVerifier_GenerateCheckCompare(t *testing.T) {
	refDir := t.TempDir()
	writeFile(t, filepath.Join(refDir, label, rspName), rspBody)

	fake := testutil.NewFakeRunner().
		On("_kat_gen", katGenerator(rspBody)).
		On("_kat_check", okChecker())
	ref, err := kat.OpenReference(context.Background(), refDir, "")
	require.NoError(t, err)

	v := kat.NewVerifier(command.NewExecutorWithRunner(0, fake), ref, false)
	dir := t.TempDir()

	out, err := v.Verify(context.Background(), variant(t), dir, skSize)

	require.NoError(t, err)
	assert.True(t, out.Checked)
	assert.Equal(t, filepath.Join(dir, rspName), out.Response)
	assert.Equal(t, filepath.Join(refDir, label, rspName), out.Reference)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "./cat1_gf16_fast_r5_kat_gen", calls[0].Command)
	assert.Equal(t, dir, calls[0].WorkDir)
	assert.Equal(t, "./cat1_gf16_fast_r5_kat_check", calls[1].Command)
}

func TestVerifier_ReferenceMismatchNamesBothPaths(t *testing.T) {
	refDir := t.TempDir()
	writeFile(t, filepath.Join(refDir, label, rspName), rspBody)

	fake := testutil.NewFakeRunner().
		On("_kat_gen", katGenerator(rspBody[:len(rspBody)-2]+"F\n")).
		On("_kat_check", okChecker())
	ref, err := kat.OpenReference(context.Background(), refDir, "")
	require.NoError(t, err)
	dir := t.TempDir()

	_, err = kat.NewVerifier(command.NewExecutorWithRunner(0, fake), ref, false).Verify(context.Background(), variant(t), dir, skSize)

	require.ErrorIs(t, err, mqerrors.ErrKATMismatch)
	assert.Contains(t, err.Error(), filepath.Join(refDir, label, rspName))
	assert.Contains(t, err.Error(), filepath.Join(dir, rspName))
	assert.Contains(t, err.Error(), label)
}

func TestVerifier_MissingFiles(t *testing.T) {
	fake := testutil.NewFakeRunner().On("_kat_gen", testutil.Response{Stdout: "done\n"})

	_, err := kat.NewVerifier(command.NewExecutorWithRunner(0, fake), nil, false).
		Verify(context.Background(), variant(t), t.TempDir(), skSize)

	require.ErrorIs(t, err, mqerrors.ErrKATMissing)
	assert.Contains(t, err.Error(), reqName)
	assert.Len(t, fake.Calls(), 1, "the checker never runs")
}

func TestVerifier_GeneratorStderr(t *testing.T) {
	fake := testutil.NewFakeRunner().On("_kat_gen", testutil.Response{Stderr: "segfault\n"})

	_, err := kat.NewVerifier(command.NewExecutorWithRunner(0, fake), nil, false).
		Verify(context.Background(), variant(t), t.TempDir(), skSize)

	require.ErrorIs(t, err, mqerrors.ErrExecutableFailed)
}

func TestVerifier_CheckerFailures(t *testing.T) {
	tests := []struct {
		name string
		resp testutil.Response
	}{
		{"no marker", testutil.Response{Stdout: "Mismatch at count 3\n"}},
		{"stderr", testutil.Response{Stdout: "Everything is fine!\n", Stderr: "warning\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeRunner().
				On("_kat_gen", katGenerator(rspBody)).
				On("_kat_check", tt.resp)

			_, err := kat.NewVerifier(command.NewExecutorWithRunner(0, fake), nil, false).
				Verify(context.Background(), variant(t), t.TempDir(), skSize)

			require.ErrorIs(t, err, mqerrors.ErrKATCheckFailed)
		})
	}
}

func TestVerifier_SkipCheck(t *testing.T) {
	fake := testutil.NewFakeRunner().On("_kat_gen", katGenerator(rspBody))

	out, err := kat.NewVerifier(command.NewExecutorWithRunner(0, fake), nil, true).
		Verify(context.Background(), variant(t), t.TempDir(), skSize)

	require.NoError(t, err)
	assert.False(t, out.Checked)
	assert.Empty(t, fake.CallsContaining("_kat_check"))
}

func TestReference_ResolvePrefersBareLabel(t *testing.T) {
	refDir := t.TempDir()
	writeFile(t, filepath.Join(refDir, "mqom2_"+label, rspName), "prefixed")

	ref, err := kat.OpenReference(context.Background(), refDir, "")
	require.NoError(t, err)

	got, err := ref.Resolve(variant(t), skSize)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(refDir, "mqom2_"+label, rspName), got, "prefixed name is the fallback")

	writeFile(t, filepath.Join(refDir, label, rspName), "bare")
	got, err = ref.Resolve(variant(t), skSize)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(refDir, label, rspName), got, "bare label wins when both exist")

	_, err = ref.Resolve(variant(t), 999)
	require.ErrorIs(t, err, mqerrors.ErrKATReferenceMissing)
}

func buildZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path) //nolint:gosec // test path
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func buildTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path) //nolint:gosec // test path
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o600, Size: int64(len(content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestOpenReference_Archives(t *testing.T) {
	files := map[string]string{
		"submission_package_v2.1/README":                          "readme",
		"submission_package_v2.1/KAT/mqom2_" + label + "/" + rspName: rspBody,
	}
	tests := []struct {
		name  string
		file  string
		build func(*testing.T, string, map[string]string)
	}{
		{"zip", "package.zip", buildZip},
		{"tar.gz", "package.tar.gz", buildTarGz},
		{"tgz", "package.tgz", buildTarGz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := filepath.Join(t.TempDir(), tt.file)
			tt.build(t, archive, files)
			scratchBase := t.TempDir()

			ref, err := kat.OpenReference(context.Background(), archive, scratchBase)
			require.NoError(t, err)
			assert.Equal(t, "KAT", filepath.Base(ref.Dir))
			assert.Equal(t, "submission_package_v2.1", filepath.Base(filepath.Dir(ref.Dir)))

			got, err := ref.Resolve(variant(t), skSize)
			require.NoError(t, err)
			content, err := os.ReadFile(got) //nolint:gosec // test path
			require.NoError(t, err)
			assert.Equal(t, rspBody, string(content))

			require.NoError(t, ref.Close())
			entries, err := os.ReadDir(scratchBase)
			require.NoError(t, err)
			assert.Empty(t, entries, "Close removes the extraction directory")
		})
	}
}

func TestOpenReference_ArchiveLayout(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "package.zip")
	buildZip(t, archive, map[string]string{
		"submission_package_v1/KAT/x/" + rspName:  rspBody,
		"submission_package_v2.0/docs/" + rspName: rspBody,
	})
	scratchBase := t.TempDir()

	_, err := kat.OpenReference(context.Background(), archive, scratchBase)

	require.ErrorIs(t, err, mqerrors.ErrKATArchiveLayout)
	entries, readErr := os.ReadDir(scratchBase)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "a failed open leaves no scratch directory behind")
}

func TestOpenReference_RejectsPathTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.zip")
	buildZip(t, archive, map[string]string{"../../escape.txt": "x"})

	_, err := kat.OpenReference(context.Background(), archive, t.TempDir())

	require.ErrorIs(t, err, mqerrors.ErrUnsafeArchivePath)
}

func TestOpenReference_InvalidSource(t *testing.T) {
	_, err := kat.OpenReference(context.Background(), filepath.Join(t.TempDir(), "missing"), "")
	require.ErrorIs(t, err, mqerrors.ErrKATSourceInvalid)

	plain := filepath.Join(t.TempDir(), "kat.txt")
	writeFile(t, plain, "x")
	_, err = kat.OpenReference(context.Background(), plain, "")
	require.ErrorIs(t, err, mqerrors.ErrKATSourceInvalid)
}
