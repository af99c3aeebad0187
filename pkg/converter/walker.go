package converter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/stackvity/chconv/pkg/util"
)

// Walker is responsible for turning the input path into work items, applying
// the suffix and exclude rules along the way.
type Walker struct {
	fs         afero.Fs
	inputRoot  string
	outputRoot string
	recursive  bool
	suffix     *RuleSet
	exclude    *RuleSet
	hooks      Hooks
	logger     *slog.Logger
}

// NewWalker creates a new Walker instance. opts must carry absolute input and
// output paths and non-nil Fs and EventHooks.
func NewWalker(opts *Options, suffix, exclude *RuleSet, loggerHandler slog.Handler) *Walker {
	return &Walker{
		fs:         opts.Fs,
		inputRoot:  opts.InputPath,
		outputRoot: opts.OutputPath,
		recursive:  opts.Recursive,
		suffix:     suffix,
		exclude:    exclude,
		hooks:      opts.EventHooks,
		logger:     slog.New(loggerHandler).With(slog.String("component", "walker")),
	}
}

// Discover returns the work items for the input path. A regular file yields
// one item or ErrInputFiltered; a directory is walked breadth-first. Any
// enumeration failure aborts discovery with ErrDiscoveryFailed.
func (w *Walker) Discover() ([]WorkItem, error) {
	info, err := w.fs.Stat(w.inputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, w.inputRoot)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrDiscoveryFailed, w.inputRoot, err)
	}
	if !info.IsDir() {
		item, err := w.discoverFile()
		if err != nil {
			return nil, err
		}
		return []WorkItem{item}, nil
	}
	return w.walk()
}

// discoverFile builds the single work item for a file input.
func (w *Walker) discoverFile() (WorkItem, error) {
	name := filepath.Base(w.inputRoot)
	w.notifyDiscovered(name)

	if rule, ok := w.exclude.MatchExclude(name); ok {
		w.notifyFiltered(name, fmt.Sprintf("excluded by pattern %q", rule.String()))
		return WorkItem{}, fmt.Errorf("%w: %s matches exclude pattern %q", ErrInputFiltered, w.inputRoot, rule.String())
	}
	if !w.suffix.IncludesSuffix(name) {
		w.notifyFiltered(name, fmt.Sprintf("suffix not in %q", w.suffix.String()))
		return WorkItem{}, fmt.Errorf("%w: %s does not match suffix %q", ErrInputFiltered, w.inputRoot, w.suffix.String())
	}

	dest := w.outputRoot
	if outInfo, err := w.fs.Stat(w.outputRoot); err == nil && outInfo.IsDir() {
		dest = filepath.Join(w.outputRoot, name)
	}
	return WorkItem{SourcePath: w.inputRoot, DestinationPath: dest}, nil
}

// walk enumerates the input directory with an explicit worklist.
func (w *Walker) walk() ([]WorkItem, error) {
	w.logger.Info("Starting directory walk", slog.String("path", w.inputRoot), slog.Bool("recursive", w.recursive))

	var items []WorkItem
	queue := []string{w.inputRoot}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		// afero.ReadDir returns entries sorted by name.
		entries, err := afero.ReadDir(w.fs, dir)
		if err != nil {
			w.logger.Error("Cannot enumerate directory", slog.String("path", dir), slog.String("error", err.Error()))
			return nil, fmt.Errorf("%w: %s: %w", ErrDiscoveryFailed, dir, err)
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			rel, err := util.RelativeTo(w.inputRoot, path)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrDiscoveryFailed, path, err)
			}
			w.notifyDiscovered(rel)

			mode := entry.Mode()
			switch {
			case mode&os.ModeSymlink != 0:
				w.logger.Debug("Skipping symbolic link", slog.String("path", rel))
			case entry.IsDir():
				if rule, ok := w.exclude.MatchExclude(rel); ok {
					w.logger.Debug("Directory pruned", slog.String("path", rel), slog.String("pattern", rule.String()))
					w.notifyFiltered(rel, fmt.Sprintf("excluded by pattern %q", rule.String()))
					continue
				}
				if w.recursive {
					queue = append(queue, path)
				}
			case mode.IsRegular():
				if rule, ok := w.exclude.MatchExclude(rel); ok {
					w.logger.Debug("File excluded", slog.String("path", rel), slog.String("pattern", rule.String()))
					w.notifyFiltered(rel, fmt.Sprintf("excluded by pattern %q", rule.String()))
					continue
				}
				if !w.suffix.IncludesSuffix(rel) {
					w.logger.Debug("File suffix not selected", slog.String("path", rel))
					w.notifyFiltered(rel, fmt.Sprintf("suffix not in %q", w.suffix.String()))
					continue
				}
				items = append(items, WorkItem{
					SourcePath:      path,
					DestinationPath: filepath.Join(w.outputRoot, rel),
				})
			default:
				w.logger.Debug("Skipping non-regular file", slog.String("path", rel), slog.String("mode", mode.String()))
			}
		}
	}

	w.logger.Info("Directory walk completed", slog.Int("items", len(items)))
	return items, nil
}

// emptyDiagnostic describes a walk that produced no work items.
func (w *Walker) emptyDiagnostic() string {
	if w.suffix != nil {
		return fmt.Sprintf("no file processed with suffix %q in %s", w.suffix.String(), w.inputRoot)
	}
	return fmt.Sprintf("no file processed in %s", w.inputRoot)
}

func (w *Walker) notifyDiscovered(rel string) {
	if hookErr := w.hooks.OnFileDiscovered(rel); hookErr != nil {
		w.logger.Warn("Event hook OnFileDiscovered failed", slog.String("path", rel), slog.String("error", hookErr.Error()))
	}
}

func (w *Walker) notifyFiltered(rel, reason string) {
	if hookErr := w.hooks.OnFileStatusUpdate(rel, StatusFiltered, reason, 0); hookErr != nil {
		w.logger.Warn("Event hook OnFileStatusUpdate (filtered) failed", slog.String("path", rel), slog.String("error", hookErr.Error()))
	}
}
