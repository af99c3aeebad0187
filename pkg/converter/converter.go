// Package converter discovers files under an input path, detects their
// character encodings and rewrites them into a target encoding on a bounded
// worker pool.
package converter

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
)

// Convert is the main entry point for the core conversion library.
//
// Cancellation is only honoured before the batch starts: once discovery
// begins, every discovered file is processed.
func Convert(ctx context.Context, opts Options) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	engine, err := NewEngine(opts)
	if err != nil {
		return Report{}, err
	}
	return engine.Run()
}

// backendModules are the modules whose versions are reported by Backends.
var backendModules = []struct {
	role, path string
}{
	{"detector", "github.com/saintfish/chardet"},
	{"transcoder", "golang.org/x/text"},
	{"classifier", "github.com/gabriel-vasile/mimetype"},
}

// Backends describes the detection and conversion libraries linked into the
// binary, with versions when build information is available.
func Backends() string {
	versions := map[string]string{}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			versions[dep.Path] = dep.Version
		}
	}
	parts := make([]string, 0, len(backendModules))
	for _, m := range backendModules {
		v := versions[m.path]
		if v == "" {
			v = "unknown"
		}
		parts = append(parts, fmt.Sprintf("%s: %s %s", m.role, m.path, v))
	}
	return strings.Join(parts, ", ")
}
