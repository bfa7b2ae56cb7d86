// Package testutil builds synthetic filings and page scans for tests, and
// locates the generated fixture tree.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fixture directories below the project root, as written by generate-test-data.
const (
	TestDataDir = "testdata"
	FilingsDir  = "filings"
	ScansDir    = "images"
)

// GetProjectRoot walks up from this file to the directory holding go.mod.
func GetProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to get caller information")
	}
	for dir := filepath.Dir(filename); ; {
		if FileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod above %s", filepath.Dir(filename))
		}
		dir = parent
	}
}

// FixturePath resolves a generated fixture, e.g. FixturePath(FilingsDir,
// "annual_text.pdf"). Tests skip when the fixture tree was never generated.
func FixturePath(t *testing.T, parts ...string) string {
	t.Helper()

	root, err := GetProjectRoot()
	require.NoError(t, err)
	path := filepath.Join(append([]string{root, TestDataDir}, parts...)...)
	if !FileExists(path) {
		t.Skipf("fixture %s not generated (run go run ./cmd/generate-test-data)", path)
	}
	return path
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// WriteFile writes data into dir/name and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, os.WriteFile(path, data, 0o600), "Failed to write %s", path)
	return path
}

// WriteFiling writes a text-layer disclosure of the given page count.
func WriteFiling(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	return WriteFile(t, dir, name, DisclosurePDF(pages))
}
