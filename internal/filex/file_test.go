package filex

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_CreatesDirectoryInCWD(t *testing.T) {
	tmp, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	defer chdir(t, tmp)()

	got, err := EnsureDir("drawings")
	require.NoError(t, err)

	want := filepath.Join(tmp, "drawings")
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir(), "should create a directory")

	if runtime.GOOS != "windows" {
		perm := fi.Mode().Perm()
		require.Equal(t, os.FileMode(0o700), perm&0o700)
	}
}

func TestEnsureDir_AbsoluteAndIdempotent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(target)
	require.NoError(t, err)
	require.Equal(t, target, first)

	second, err := EnsureDir(target)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	require.NoError(t, os.WriteFile("drawings", []byte("x"), 0o660))

	_, err := EnsureDir("drawings")
	require.Error(t, err, "should fail when a file exists with the same name")
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"A-101.pdf":            "A-101.pdf",
		"../../etc/passwd":     "passwd",
		`C:\plans\A-102.pdf`:   "A-102.pdf",
		"":                     "fallback",
		"..":                   "fallback",
		"/":                    "fallback",
		"nested/dir/sheet.pdf": "sheet.pdf",
	}
	for in, want := range cases {
		require.Equal(t, want, SafeName(in, "fallback"), "input %q", in)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteAtomic(dir, "sheet.pdf", func(w io.Writer) error {
		_, err := w.Write([]byte("content"))
		return err
	})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "sheet.pdf"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "content", string(b))
}

func TestWriteAtomic_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")

	_, err := WriteAtomic(dir, "sheet.pdf", func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
