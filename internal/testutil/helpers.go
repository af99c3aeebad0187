package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// CreateDummyFile creates a dummy file with specified content at the given path,
// ensuring parent directories exist. It uses require assertions for test setup.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	fullPath := filepath.Clean(path)
	dir := filepath.Dir(fullPath)
	err := os.MkdirAll(dir, 0o755)
	require.NoError(t, err, "Failed to create directory %s for dummy file", dir)
	err = os.WriteFile(fullPath, []byte(content), 0o644)
	require.NoError(t, err, "Failed to write dummy file %s", fullPath)
}

// CreateDummyDir ensures a directory exists at the given path, creating parents if needed.
func CreateDummyDir(t *testing.T, path string) {
	t.Helper()
	err := os.MkdirAll(filepath.Clean(path), 0o755)
	require.NoError(t, err, "Failed to create dummy directory %s", path)
}

// NewMemTree returns an in-memory filesystem populated with files. Keys are
// absolute paths; a key ending in the separator creates an empty directory.
func NewMemTree(t *testing.T, files map[string][]byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if len(path) > 0 && os.IsPathSeparator(path[len(path)-1]) {
			require.NoError(t, fs.MkdirAll(filepath.Clean(path), 0o755))
			continue
		}
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, content, 0o644), "Failed to write %s", path)
	}
	return fs
}

// Snapshot lists every regular file under root with its content, for
// before/after comparisons.
func Snapshot(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			data, readErr := afero.ReadFile(fs, path)
			if readErr != nil {
				return readErr
			}
			out[path] = string(data)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		require.NoError(t, err)
	}
	return out
}

// ListFiles returns the sorted regular-file paths under root.
func ListFiles(t *testing.T, fs afero.Fs, root string) []string {
	t.Helper()
	snap := Snapshot(t, fs, root)
	paths := make([]string, 0, len(snap))
	for p := range snap {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DiscardHandler returns a slog handler that drops everything.
func DiscardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
}
