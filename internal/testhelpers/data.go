package testhelpers

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// RepoDataDir returns the absolute path of the data directory shipped with the repository.
func RepoDataDir(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate testhelpers source file")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "data")
}

// DataDir copies the repository data directory to a temporary directory so that tests can modify it.
func DataDir(t testing.TB) string {
	t.Helper()
	src := RepoDataDir(t)
	dst := t.TempDir()
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755) //nolint:mnd // directory permissions
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o600) //nolint:mnd // file permissions
	})
	if err != nil {
		t.Fatal(err)
	}
	return dst
}

// WriteFile overwrites dir/name with content.
func WriteFile(t testing.TB, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:mnd // directory permissions
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil { //nolint:mnd // file permissions
		t.Fatal(err)
	}
}
