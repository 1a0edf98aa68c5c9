// Package fsperm holds test assertions for files that carry key material.
package fsperm

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// AssertPrivateFile verifies that path is a regular file readable only by
// its owner and that its directory is private too.
func AssertPrivateFile(t testing.TB, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat file failed: %v", err)
	}
	if !info.Mode().IsRegular() {
		t.Fatalf("expected regular file: %s", path)
	}
	assertPerm(t, path, info.Mode(), 0o600)
	AssertPrivateDir(t, filepath.Dir(path))
}

// AssertPrivateDir verifies that dir exists with 0700 permissions.
func AssertPrivateDir(t testing.TB, dir string) {
	t.Helper()
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir failed: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("expected directory, got file: %s", dir)
	}
	assertPerm(t, dir, info.Mode(), 0o700)
}

func assertPerm(t testing.TB, path string, mode fs.FileMode, want fs.FileMode) {
	t.Helper()
	if runtime.GOOS == "windows" {
		return
	}
	if perm := mode.Perm(); perm != want {
		t.Fatalf("expected perm %04o, got %04o for %s", want, perm, path)
	}
}
