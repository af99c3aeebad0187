package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
	"github.com/stackvity/chconv/pkg/converter/cache"
	"github.com/stackvity/chconv/pkg/converter/encoding"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// DirCache creates output directories on demand and remembers which ones
// exist so concurrent workers do not repeat the work.
type DirCache struct {
	fs      afero.Fs
	created *xsync.MapOf[string, struct{}]
}

// NewDirCache returns an empty cache over fs.
func NewDirCache(fs afero.Fs) *DirCache {
	return &DirCache{fs: fs, created: xsync.NewMapOf[string, struct{}]()}
}

// Ensure creates dir and its parents if needed. It is safe for concurrent
// use; racing callers may both call MkdirAll, which is idempotent.
func (c *DirCache) Ensure(dir string) error {
	if _, ok := c.created.Load(dir); ok {
		return nil
	}
	if err := c.fs.MkdirAll(dir, dirPerm); err != nil {
		return err
	}
	c.created.Store(dir, struct{}{})
	return nil
}

// FileProcessor runs the conversion pipeline for single files. One instance
// is built per worker; it owns its detector.
type FileProcessor struct {
	fs         afero.Fs
	target     string
	dryRun     bool
	detector   encoding.Detector
	transcoder encoding.Transcoder
	classifier encoding.Classifier
	dirs       *DirCache
	index      cache.Manager
	hooks      Hooks
	logger     *slog.Logger
}

// NewFileProcessor creates a FileProcessor. opts must have its dependencies
// resolved; a nil opts.Classifier disables content classification and a nil
// index disables incremental skipping.
func NewFileProcessor(opts *Options, detector encoding.Detector, dirs *DirCache, index cache.Manager, loggerHandler slog.Handler) *FileProcessor {
	return &FileProcessor{
		fs:         opts.Fs,
		target:     opts.TargetEncoding,
		dryRun:     opts.DryRun,
		detector:   detector,
		transcoder: opts.Transcoder,
		classifier: opts.Classifier,
		dirs:       dirs,
		index:      index,
		hooks:      opts.EventHooks,
		logger:     slog.New(loggerHandler).With(slog.String("component", "processor")),
	}
}

// Process converts one work item and reports its outcome. It never returns
// a batch-level error: every failure is captured on the Outcome.
func (p *FileProcessor) Process(item WorkItem) Outcome {
	startTime := time.Now()
	p.notify(item.SourcePath, StatusProcessing, "", 0)

	outcome := p.process(item)
	outcome.Item = item
	outcome.Duration = time.Since(startTime)

	logLevel := slog.LevelDebug
	if outcome.Status == StatusFailed {
		logLevel = slog.LevelError
	}
	p.logger.Log(context.Background(), logLevel, "Processor finished file task",
		slog.String("path", item.SourcePath),
		slog.String("status", string(outcome.Status)),
		slog.Duration("duration", outcome.Duration),
		slog.String("message", outcome.Message))

	p.notify(item.SourcePath, outcome.Status, outcome.Message, outcome.Duration)
	return outcome
}

func (p *FileProcessor) process(item WorkItem) Outcome {
	src, dst := item.SourcePath, item.DestinationPath

	// 1. Content classification
	if p.classifier != nil {
		isText, mimeType, err := p.classifier.Classify(src)
		if err != nil {
			return failed(MessageClassifyFailed, fmt.Errorf("%w: %w", ErrClassifyFailed, err))
		}
		if !isText {
			return Outcome{Status: StatusSkipped, Message: fmt.Sprintf("%s (%s)", MessageNonText, mimeType)}
		}
	}

	// 2. Read and detect
	content, err := afero.ReadFile(p.fs, src)
	if err != nil {
		return failed(MessageReadFailed, fmt.Errorf("%w: %w", ErrReadFailed, err))
	}
	if len(content) == 0 {
		return Outcome{Status: StatusSkipped, Message: MessageEmptyFile}
	}
	var sourceHash string
	if p.index != nil {
		sourceHash = cache.Hash(content)
		if entry, ok := p.upToDate(src, dst, sourceHash); ok {
			return Outcome{Status: StatusSkipped, SourceEncoding: entry.SourceEncoding, Message: MessageUpToDate}
		}
	}

	detected, err := p.detector.Detect(content)
	if err != nil {
		if errors.Is(err, encoding.ErrEmptyContent) {
			return Outcome{Status: StatusSkipped, Message: MessageEmptyFile}
		}
		return failed(MessageUnrecognized, err)
	}
	p.logger.Debug("Detected encoding", slog.String("path", src), slog.String("encoding", detected))

	// 3. Dry run stops before any filesystem mutation
	if p.dryRun {
		p.logConversion(MessageWouldConvert, src, detected, dst)
		return Outcome{Status: StatusSuccess, SourceEncoding: detected, Message: MessageWouldConvert}
	}

	if err := p.dirs.Ensure(filepath.Dir(dst)); err != nil {
		return Outcome{
			Status:         StatusFailed,
			SourceEncoding: detected,
			Message:        MessageMkdirFailed,
			Err:            fmt.Errorf("%w: %s: %w", ErrMkdirFailed, filepath.Dir(dst), err),
		}
	}

	// 4. Same encoding: copy bytes verbatim
	if encoding.SameEncoding(detected, p.target) {
		if err := writeFileAtomic(p.fs, dst, content, filePerm); err != nil {
			return Outcome{Status: StatusFailed, SourceEncoding: detected, Message: MessageWriteFailed,
				Err: fmt.Errorf("%w: %s: %w", ErrWriteFailed, dst, err)}
		}
		p.record(src, sourceHash, detected, content)
		p.logConversion(MessageCopied, src, detected, dst)
		return Outcome{Status: StatusSuccess, SourceEncoding: detected, Message: MessageCopied}
	}

	// 5. Transcode
	converted, err := p.transcoder.Transcode(content, detected, p.target)
	if err != nil {
		return Outcome{Status: StatusFailed, SourceEncoding: detected, Message: err.Error(), Err: err}
	}

	// 6. Persist
	if err := writeFileAtomic(p.fs, dst, converted, filePerm); err != nil {
		return Outcome{Status: StatusFailed, SourceEncoding: detected, Message: MessageWriteFailed,
			Err: fmt.Errorf("%w: %s: %w", ErrWriteFailed, dst, err)}
	}
	p.record(src, sourceHash, detected, converted)
	p.logConversion(MessageConverted, src, detected, dst)
	return Outcome{Status: StatusSuccess, SourceEncoding: detected, Message: MessageConverted}
}

// logConversion writes the per-file Info line shown without --verbose.
func (p *FileProcessor) logConversion(message, src, detected, dst string) {
	p.logger.Info(message,
		slog.String("src", src),
		slog.String("from", detected),
		slog.String("dst", dst),
		slog.String("to", p.target))
}

// upToDate reports whether the index records src as converted from the same
// content into the same target and dst still holds that output.
func (p *FileProcessor) upToDate(src, dst, sourceHash string) (cache.Entry, bool) {
	entry, hit := p.index.Check(src, sourceHash, p.target)
	if !hit {
		return cache.Entry{}, false
	}
	existing, err := afero.ReadFile(p.fs, dst)
	if err != nil || cache.Hash(existing) != entry.OutputHash {
		p.logger.Debug("Cached output missing or modified", slog.String("path", dst))
		return cache.Entry{}, false
	}
	return entry, true
}

func (p *FileProcessor) record(src, sourceHash, detected string, output []byte) {
	if p.index == nil {
		return
	}
	p.index.Update(src, cache.Entry{
		SourceHash:     sourceHash,
		SourceEncoding: detected,
		Target:         p.target,
		OutputHash:     cache.Hash(output),
	})
}

func (p *FileProcessor) notify(path string, status Status, message string, duration time.Duration) {
	if hookErr := p.hooks.OnFileStatusUpdate(path, status, message, duration); hookErr != nil {
		p.logger.Warn("Event hook OnFileStatusUpdate failed", slog.String("path", path), slog.String("error", hookErr.Error()))
	}
}

func failed(message string, err error) Outcome {
	return Outcome{Status: StatusFailed, Message: message, Err: err}
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partially written destination.
func writeFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".chconv-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = fs.Chmod(tmpName, perm); err != nil {
		return err
	}
	return fs.Rename(tmpName, path)
}
