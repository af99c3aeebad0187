package converter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/spf13/afero"
	"github.com/stackvity/chconv/pkg/converter/cache"
	"github.com/stackvity/chconv/pkg/converter/encoding"
)

// Engine orchestrates discovery, conversion and aggregation for one run.
type Engine struct {
	opts    *Options
	logger  *slog.Logger
	suffix  *RuleSet
	exclude *RuleSet
	pool    *WorkerPool
	dirs    *DirCache
	index   cache.Manager // nil unless incremental
}

// NewEngine validates opts, fills in default dependencies and returns a
// ready Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.InputPath == "" {
		return nil, fmt.Errorf("%w: input path cannot be empty", ErrConfigValidation)
	}
	if opts.OutputPath == "" {
		return nil, fmt.Errorf("%w: output path cannot be empty", ErrConfigValidation)
	}
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("%w: concurrency cannot be negative (got %d)", ErrConfigValidation, opts.Concurrency)
	}
	if opts.InlineThreshold < 0 {
		return nil, fmt.Errorf("%w: inline threshold cannot be negative (got %d)", ErrConfigValidation, opts.InlineThreshold)
	}
	if opts.MinConfidence < 0 || opts.MinConfidence > 100 {
		return nil, fmt.Errorf("%w: minimum confidence must be within 0-100 (got %d)", ErrConfigValidation, opts.MinConfidence)
	}

	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.TargetEncoding == "" {
		opts.TargetEncoding = DefaultTargetEncoding
	}
	if opts.DetectorFactory == nil {
		opts.DetectorFactory = encoding.NewChardetDetectorFactory(opts.MinConfidence)
		logger.Debug("DetectorFactory not provided, using chardet.")
	}
	if opts.Transcoder == nil {
		opts.Transcoder = encoding.NewXTextTranscoder(opts.GrowOutputBuffer)
		logger.Debug("Transcoder not provided, using x/text.")
	}
	if !opts.ClassifyContent {
		opts.Classifier = nil
	} else if opts.Classifier == nil {
		opts.Classifier = encoding.NewMimeClassifier(opts.Fs)
		logger.Debug("Classifier not provided, using mimetype.")
	}
	opts.InputPath = filepath.Clean(opts.InputPath)
	opts.OutputPath = filepath.Clean(opts.OutputPath)

	var index cache.Manager
	if opts.Incremental {
		if opts.Cache == nil {
			opts.Cache = cache.NewFileManager(opts.Fs, opts.Logger, opts.AppVersion, opts.CacheFormat)
		}
		if opts.CachePath == "" {
			opts.CachePath = defaultCachePath(opts.Fs, opts.InputPath, opts.OutputPath)
		}
		index = opts.Cache
		logger.Debug("Incremental mode enabled", slog.String("cachePath", opts.CachePath))
	}

	pool := NewWorkerPool(opts.Concurrency, opts.InlineThreshold, opts.Logger)

	return &Engine{
		opts:    &opts,
		logger:  logger,
		suffix:  ParseRuleSet(opts.SuffixPatterns),
		exclude: ParseRuleSet(opts.ExcludePatterns),
		pool:    pool,
		dirs:    NewDirCache(opts.Fs),
		index:   index,
	}, nil
}

// defaultCachePath places the index in the output root: the output directory
// itself for directory input, its parent for single-file input.
func defaultCachePath(fs afero.Fs, input, output string) string {
	if info, err := fs.Stat(input); err == nil && !info.IsDir() {
		return filepath.Join(filepath.Dir(output), cache.FileName)
	}
	return filepath.Join(output, cache.FileName)
}

// Run performs the conversion. The returned error is non-nil only for
// batch-level failures (missing input, filtered single input, discovery
// failure); per-file failures are reported through the Report verdict.
func (e *Engine) Run() (Report, error) {
	startTime := time.Now()
	e.logger.Info("convert start...",
		slog.String("input", e.opts.InputPath),
		slog.String("output", e.opts.OutputPath),
		slog.String("to", e.opts.TargetEncoding),
		slog.Int("concurrency", e.pool.Size()),
		slog.Bool("dryRun", e.opts.DryRun))

	walker := NewWalker(e.opts, e.suffix, e.exclude, e.opts.Logger)
	items, err := walker.Discover()
	if err != nil {
		stacked := goerrors.Wrap(err, 1)
		e.logger.Error("Discovery failed", slog.String("error", err.Error()))
		e.logger.Debug("Discovery failure stack trace", slog.String("stack", string(stacked.Stack())))
		report := newReport(e.opts, e.pool.Size(), Aggregate(nil), nil, startTime, err, nil)
		e.complete(report)
		return report, stacked
	}

	var diagnostics []string
	if len(items) == 0 {
		diag := walker.emptyDiagnostic()
		e.logger.Warn(diag)
		diagnostics = append(diagnostics, diag)
	}
	if hookErr := e.opts.EventHooks.OnDiscoveryComplete(len(items)); hookErr != nil {
		e.logger.Warn("OnDiscoveryComplete hook returned an error", slog.String("error", hookErr.Error()))
	}

	if e.index != nil {
		if loadErr := e.index.Load(e.opts.CachePath); loadErr != nil {
			e.logger.Warn("Conversion cache unavailable, converting everything", slog.String("error", loadErr.Error()))
			diagnostics = append(diagnostics, loadErr.Error())
		}
	}

	outcomes := e.pool.Run(items, e.newTask)

	if e.index != nil && !e.opts.DryRun {
		if persistErr := e.index.Persist(e.opts.CachePath); persistErr != nil {
			e.logger.Warn("Failed to save conversion cache", slog.String("error", persistErr.Error()))
			diagnostics = append(diagnostics, persistErr.Error())
		}
	}
	batch := Aggregate(outcomes)
	report := newReport(e.opts, e.pool.Size(), batch, outcomes, startTime, nil, diagnostics)

	e.logger.Info("convert done.",
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("total", batch.Total),
		slog.Int("succeeded", batch.Succeeded),
		slog.Int("skipped", batch.Skipped),
		slog.Int("failed", batch.Failed),
		slog.String("verdict", string(batch.Verdict)))
	if batchErr := batch.Err(); batchErr != nil {
		e.logger.Debug("Failed files", slog.String("errors", batchErr.Error()))
	}
	e.complete(report)
	return report, nil
}

// newTask is the pool's TaskFactory: every worker gets its own processor and
// detector, sharing only the directory cache.
func (e *Engine) newTask(workerID int) TaskFunc {
	e.logger.Debug("Worker started", slog.Int("workerID", workerID))
	processor := NewFileProcessor(e.opts, e.opts.DetectorFactory(), e.dirs, e.index, e.opts.Logger)
	return processor.Process
}

func (e *Engine) complete(report Report) {
	if hookErr := e.opts.EventHooks.OnRunComplete(report); hookErr != nil {
		e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
	}
}
