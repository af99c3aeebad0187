// Package util holds small path helpers shared by the converter and the CLI.
package util

import (
	"os"
	"path/filepath"
	"strings"
)

// Extension returns the extension of the final element of path, including the
// leading dot. A name whose only dot is the leading one (".bashrc") has no
// extension, and neither do "." and "..".
func Extension(path string) string {
	name := filepath.Base(path)
	if name == "." || name == ".." {
		return ""
	}
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return ""
	}
	return name[idx:]
}

// Segments splits a relative path into its non-empty components using the
// native separator.
func Segments(relPath string) []string {
	parts := strings.Split(filepath.Clean(relPath), string(os.PathSeparator))
	segments := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			segments = append(segments, p)
		}
	}
	return segments
}

// RelativeTo returns path relative to root. If path equals root, the base name
// of path is returned so callers always get a non-empty, matchable name.
func RelativeTo(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return filepath.Base(path), nil
	}
	return rel, nil
}

// Rebase maps path, which lives under srcRoot, to the same relative position
// under dstRoot.
func Rebase(srcRoot, dstRoot, path string) (string, error) {
	rel, err := filepath.Rel(srcRoot, path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dstRoot, rel), nil
}
