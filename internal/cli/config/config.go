package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stackvity/chconv/pkg/converter"
	"github.com/stackvity/chconv/pkg/converter/cache"
	"github.com/stackvity/chconv/pkg/converter/encoding"
)

const (
	EnvPrefix         = "CHCONV"
	DefaultConfigName = "chconv"
)

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"input":          "input",
	"output":         "output",
	"to":             "to",
	"suffix":         "suffix",
	"exclude":        "exclude",
	"recursive":      "recursive",
	"dry-run":        "dryRun",
	"verbose":        "verbose",
	"concurrency":    "concurrency",
	"min-confidence": "minConfidence",
	"output-format":  "outputFormat",
	"incremental":    "incremental",
	"cache-file":     "cachePath",
}

// LoadAndValidate loads configuration from all sources (defaults, file, env,
// flags), validates the merged result, resolves absolute paths and sets up
// the logger. The returned Options use the OS filesystem.
func LoadAndValidate(cfgFile, appVersion string, flags *pflag.FlagSet) (converter.Options, *slog.Logger, error) {
	var opts converter.Options
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	// --- Load Config File ---
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		} else {
			tempLogger.Debug("Home directory unavailable, searching the working directory only", slog.String("error", err.Error()))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("%w: error reading config file '%s': %w", converter.ErrConfigValidation, configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
	}

	// --- Bind Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Bind Flags (Highest Priority) ---
	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				tempLogger.Debug("Flag lookup failed during binding", slog.String("flag", name))
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				tempLogger.Error("Error binding flag", slog.String("flag", name), slog.Any("error", err))
				return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", name, err)
			}
		}
	}

	opts.AppVersion = appVersion
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("%w: error unmarshalling configuration: %w", converter.ErrConfigValidation, err)
	}

	// --no-classify inverts the classify key, so it cannot be bound directly.
	if flags != nil && flags.Changed("no-classify") {
		if noClassify, _ := flags.GetBool("no-classify"); noClassify {
			opts.ClassifyContent = false
		}
	}
	if flags != nil && flags.Changed("no-tui") {
		if noTui, _ := flags.GetBool("no-tui"); noTui {
			opts.TuiEnabled = false
		}
	}
	// Debug logs and the interactive view share stderr.
	if opts.Verbose {
		opts.TuiEnabled = false
	}

	// --- Setup Final Logger ---
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler
	opts.Fs = afero.NewOsFs()

	if err := validateAndDeriveOptions(&opts, logger); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("configFile", opts.ConfigFilePath),
		slog.Bool("verbose", opts.Verbose),
		slog.String("logLevel", logLevel.String()),
	)
	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options in Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("output", "")
	v.SetDefault("to", converter.DefaultTargetEncoding)
	v.SetDefault("suffix", "")
	v.SetDefault("exclude", "")

	v.SetDefault("recursive", converter.DefaultRecursive)
	v.SetDefault("dryRun", converter.DefaultDryRun)
	v.SetDefault("verbose", converter.DefaultVerbose)

	v.SetDefault("concurrency", converter.DefaultConcurrency)
	v.SetDefault("inlineThreshold", converter.DefaultInlineThreshold)
	v.SetDefault("classify", converter.DefaultClassifyContent)
	v.SetDefault("minConfidence", converter.DefaultMinConfidence)
	v.SetDefault("growBuffer", converter.DefaultGrowOutputBuffer)

	v.SetDefault("outputFormat", string(converter.DefaultOutputFormat))
	v.SetDefault("tuiEnabled", converter.DefaultTuiEnabled)

	v.SetDefault("incremental", converter.DefaultIncremental)
	v.SetDefault("cachePath", "")
	v.SetDefault("cacheFormat", converter.DefaultCacheFormat)
}

// isValidEnumValue checks if a given string value is present in a slice of allowed enum values.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions performs semantic validation on the populated
// Options struct. It wraps errors with converter.ErrConfigValidation, and
// additionally with converter.ErrInputNotFound for a missing input.
func validateAndDeriveOptions(opts *converter.Options, logger *slog.Logger) error {
	// === Path Validations ===
	if opts.InputPath == "" {
		err := fmt.Errorf("%w: input path is required (-i, --input)", converter.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "input"))
		return err
	}
	absInput, err := filepath.Abs(opts.InputPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute input path '%s': %w", converter.ErrConfigValidation, opts.InputPath, err)
		logger.Error(err.Error(), slog.String("key", "input"), slog.String("value", opts.InputPath))
		return err
	}
	opts.InputPath = absInput
	if _, err := opts.Fs.Stat(opts.InputPath); err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %w: '%s'", converter.ErrConfigValidation, converter.ErrInputNotFound, opts.InputPath)
		} else {
			err = fmt.Errorf("%w: cannot access input path '%s': %w", converter.ErrConfigValidation, opts.InputPath, err)
		}
		logger.Error(err.Error(), slog.String("key", "input"), slog.String("value", opts.InputPath))
		return err
	}
	logger.Debug("Validated input path", slog.String("path", opts.InputPath))

	if opts.OutputPath == "" {
		err := fmt.Errorf("%w: output path is required (-o, --output)", converter.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "output"))
		return err
	}
	absOutput, err := filepath.Abs(opts.OutputPath)
	if err != nil {
		err = fmt.Errorf("%w: cannot resolve absolute output path '%s': %w", converter.ErrConfigValidation, opts.OutputPath, err)
		logger.Error(err.Error(), slog.String("key", "output"), slog.String("value", opts.OutputPath))
		return err
	}
	opts.OutputPath = absOutput

	// === Enum String Validations ===
	opts.OutputFormat = converter.OutputFormat(strings.ToLower(string(opts.OutputFormat)))
	allowedOutputFormat := []converter.OutputFormat{
		converter.OutputFormatText, converter.OutputFormatJSON, converter.OutputFormatYAML, converter.OutputFormatTOML,
	}
	if !isValidEnumValue(opts.OutputFormat, allowedOutputFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: %v", converter.ErrConfigValidation, opts.OutputFormat, allowedOutputFormat)
		logger.Error(err.Error(), slog.String("key", "outputFormat"), slog.String("value", string(opts.OutputFormat)))
		return err
	}

	opts.CacheFormat = strings.ToLower(opts.CacheFormat)
	allowedCacheFormat := []string{cache.FormatGob, cache.FormatJSON}
	if !isValidEnumValue(opts.CacheFormat, allowedCacheFormat) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'cacheFormat'. Allowed: %v", converter.ErrConfigValidation, opts.CacheFormat, allowedCacheFormat)
		logger.Error(err.Error(), slog.String("key", "cacheFormat"), slog.String("value", opts.CacheFormat))
		return err
	}
	if opts.CachePath != "" {
		absCache, err := filepath.Abs(opts.CachePath)
		if err != nil {
			err = fmt.Errorf("%w: cannot resolve absolute cache path '%s': %w", converter.ErrConfigValidation, opts.CachePath, err)
			logger.Error(err.Error(), slog.String("key", "cachePath"), slog.String("value", opts.CachePath))
			return err
		}
		opts.CachePath = absCache
	}

	// === Numeric Range Validations ===
	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'concurrency' (flag --concurrency). Must be >= 0", converter.ErrConfigValidation, opts.Concurrency)
		logger.Error(err.Error(), slog.String("key", "concurrency"), slog.Int("value", opts.Concurrency))
		return err
	}
	if opts.InlineThreshold < 0 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'inlineThreshold'. Must be >= 0", converter.ErrConfigValidation, opts.InlineThreshold)
		logger.Error(err.Error(), slog.String("key", "inlineThreshold"), slog.Int("value", opts.InlineThreshold))
		return err
	}
	if opts.MinConfidence < 0 || opts.MinConfidence > 100 {
		err := fmt.Errorf("%w: invalid value '%d' for key 'minConfidence' (flag --min-confidence). Must be between 0 and 100", converter.ErrConfigValidation, opts.MinConfidence)
		logger.Error(err.Error(), slog.String("key", "minConfidence"), slog.Int("value", opts.MinConfidence))
		return err
	}

	// An unknown target fails each file as a conversion error; warn up front.
	if opts.TargetEncoding == "" {
		opts.TargetEncoding = converter.DefaultTargetEncoding
	}
	if _, _, lookupErr := encoding.Lookup(opts.TargetEncoding); lookupErr != nil {
		logger.Warn("Target encoding is not recognized; every conversion will fail",
			slog.String("to", opts.TargetEncoding), slog.String("error", lookupErr.Error()))
	}

	return nil
}
