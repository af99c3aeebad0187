package converter

import (
	"log/slog"
	"time"

	"github.com/spf13/afero"
	"github.com/stackvity/chconv/pkg/converter/cache"
	"github.com/stackvity/chconv/pkg/converter/encoding"
)

// Options holds the configuration for a single Convert call.
type Options struct {
	// InputPath is a file or directory to convert.
	InputPath string `mapstructure:"input"`
	// OutputPath is the destination file (single-file input) or root directory.
	OutputPath string `mapstructure:"output"`
	// TargetEncoding is the label every converted file is written in.
	TargetEncoding string `mapstructure:"to"`
	// SuffixPatterns is a ';'-delimited list of extension rules. Empty keeps all files.
	SuffixPatterns string `mapstructure:"suffix"`
	// ExcludePatterns is a ';'-delimited list of exclusion rules.
	ExcludePatterns string `mapstructure:"exclude"`

	Recursive bool `mapstructure:"recursive"`
	DryRun    bool `mapstructure:"dryRun"`
	Verbose   bool `mapstructure:"verbose"`

	// Concurrency is the number of workers; 0 means runtime.NumCPU().
	Concurrency int `mapstructure:"concurrency"`
	// InlineThreshold is the batch size below which files are processed on
	// the calling goroutine.
	InlineThreshold int `mapstructure:"inlineThreshold"`
	// ClassifyContent skips files whose sniffed MIME type is not text.
	ClassifyContent bool `mapstructure:"classify"`
	// MinConfidence is the detector's confidence floor (0-100).
	MinConfidence int `mapstructure:"minConfidence"`
	// GrowOutputBuffer lets the transcoder enlarge its output buffer instead
	// of failing the file.
	GrowOutputBuffer bool `mapstructure:"growBuffer"`
	// OutputFormat selects how the CLI renders the final report.
	OutputFormat OutputFormat `mapstructure:"outputFormat"`
	// TuiEnabled lets the CLI show the interactive file list on a terminal.
	TuiEnabled bool `mapstructure:"tuiEnabled"`

	// Incremental skips files whose source and destination match the cache
	// index from a previous run.
	Incremental bool `mapstructure:"incremental"`
	// CachePath is the cache index location. Empty means cache.FileName in
	// the output root.
	CachePath string `mapstructure:"cachePath"`
	// CacheFormat is "gob" or "json".
	CacheFormat string `mapstructure:"cacheFormat"`

	// Populated by the CLI layer.
	ConfigFilePath string `mapstructure:"-"`
	AppVersion     string `mapstructure:"-"`

	// --- Dependencies (injected, not configured) ---

	// Fs is the filesystem all reads and writes go through. Defaults to the OS.
	Fs afero.Fs `mapstructure:"-"`
	// Logger is required.
	Logger slog.Handler `mapstructure:"-"`
	// EventHooks defaults to NoOpHooks.
	EventHooks Hooks `mapstructure:"-"`
	// DetectorFactory is called once per worker. Defaults to chardet.
	DetectorFactory encoding.DetectorFactory `mapstructure:"-"`
	// Transcoder is shared by all workers. Defaults to x/text.
	Transcoder encoding.Transcoder `mapstructure:"-"`
	// Classifier is shared by all workers. Defaults to mimetype when
	// ClassifyContent is set.
	Classifier encoding.Classifier `mapstructure:"-"`
	// Cache is used when Incremental is set. Defaults to a file index on Fs.
	Cache cache.Manager `mapstructure:"-"`
}

// Hooks defines callbacks for status updates during the conversion process.
// Implementations MUST be thread-safe as methods may be called concurrently.
type Hooks interface {
	// OnFileDiscovered is called for every entry the traverser visits.
	OnFileDiscovered(path string) error
	// OnDiscoveryComplete is called once with the number of work items.
	OnDiscoveryComplete(total int) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks interface.
type NoOpHooks struct{}

// OnFileDiscovered implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileDiscovered(path string) error { return nil }

// OnDiscoveryComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnDiscoveryComplete(total int) error { return nil }

// OnFileStatusUpdate implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

// OnRunComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }
