package converter

import "github.com/stackvity/chconv/pkg/converter/cache"

// Constants defining default values for configuration options.
// These are used when setting up Viper defaults in the configuration loading process.
const (
	// DefaultTargetEncoding is the encoding files are converted to.
	DefaultTargetEncoding = "UTF-8"
	// DefaultConcurrency determines the default number of workers. 0 means runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultInlineThreshold is the item count below which the pool runs
	// tasks sequentially instead of starting workers.
	DefaultInlineThreshold = 4
	// DefaultRecursive is the default traversal depth setting.
	DefaultRecursive = false
	// DefaultDryRun is the default state for dry-run mode.
	DefaultDryRun = false
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
	// DefaultClassifyContent enables MIME-based skipping of non-text files.
	DefaultClassifyContent = true
	// DefaultMinConfidence is the CLI's floor for statistical detector
	// guesses. Short CJK samples otherwise read as single-byte code pages.
	DefaultMinConfidence = 50
	// DefaultGrowOutputBuffer lets the transcoder enlarge its output buffer.
	DefaultGrowOutputBuffer = true
	// DefaultOutputFormat is the default format for the final summary report.
	DefaultOutputFormat = OutputFormatText
	// DefaultTuiEnabled shows the interactive view when stderr is a terminal.
	DefaultTuiEnabled = true
	// DefaultIncremental disables the conversion cache.
	DefaultIncremental = false
	// DefaultCacheFormat is the serialization format of the cache index.
	DefaultCacheFormat = cache.DefaultFormat
)

// Constants related to report schema.
const (
	// ReportSchemaVersion indicates the version of the report structure.
	ReportSchemaVersion = "1.0"
)

// Messages attached to outcomes.
const (
	MessageEmptyFile      = "empty file"
	MessageUnrecognized   = "unrecognized encoding"
	MessageNonText        = "non-text content"
	MessageWouldConvert   = "would convert"
	MessageCopied         = "copied"
	MessageConverted      = "converted"
	MessageReadFailed     = "read failed"
	MessageClassifyFailed = "classification failed"
	MessageWriteFailed    = "write failed"
	MessageMkdirFailed    = "mkdir failed"
	MessageUpToDate       = "up to date"
)
