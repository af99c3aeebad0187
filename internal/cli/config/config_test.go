package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stackvity/chconv/internal/testutil"
	"github.com/stackvity/chconv/pkg/converter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFlagSet mirrors the flags registered by the root command.
func newTestFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("chconv", pflag.ContinueOnError)
	flags.StringP("input", "i", "", "")
	flags.StringP("output", "o", "", "")
	flags.StringP("to", "t", converter.DefaultTargetEncoding, "")
	flags.StringP("suffix", "s", "", "")
	flags.StringP("exclude", "e", "", "")
	flags.BoolP("recursive", "r", false, "")
	flags.BoolP("dry-run", "d", false, "")
	flags.BoolP("verbose", "v", false, "")
	flags.IntP("concurrency", "j", converter.DefaultConcurrency, "")
	flags.Bool("no-classify", false, "")
	flags.Bool("no-tui", false, "")
	flags.Int("min-confidence", converter.DefaultMinConfidence, "")
	flags.String("output-format", string(converter.DefaultOutputFormat), "")
	flags.Bool("incremental", false, "")
	flags.String("cache-file", "", "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigName+".yaml")
	testutil.CreateDummyFile(t, path, content)
	return path
}

func TestLoadAndValidate_FlagsOnly(t *testing.T) {
	input := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")
	flags := newTestFlagSet(t, "-i", input, "-o", output, "-t", "GBK", "-r", "-d", "-s", "txt;md", "-e", "vendor", "-j", "3")

	opts, logger, err := LoadAndValidate("", "1.2.3", flags)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.Equal(t, input, opts.InputPath)
	assert.Equal(t, output, opts.OutputPath)
	assert.Equal(t, "GBK", opts.TargetEncoding)
	assert.True(t, opts.Recursive)
	assert.True(t, opts.DryRun)
	assert.Equal(t, "txt;md", opts.SuffixPatterns)
	assert.Equal(t, "vendor", opts.ExcludePatterns)
	assert.Equal(t, 3, opts.Concurrency)
	assert.Equal(t, "1.2.3", opts.AppVersion)
	assert.True(t, opts.ClassifyContent, "classification is on by default")
	assert.True(t, opts.GrowOutputBuffer)
	assert.Equal(t, converter.DefaultInlineThreshold, opts.InlineThreshold)
	assert.Equal(t, converter.OutputFormatText, opts.OutputFormat)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Fs)

	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err), "loading configuration must not create the output directory")
}

func TestLoadAndValidate_Defaults(t *testing.T) {
	flags := newTestFlagSet(t, "-i", t.TempDir(), "-o", t.TempDir())

	opts, _, err := LoadAndValidate("", "dev", flags)
	require.NoError(t, err)

	assert.Equal(t, converter.DefaultTargetEncoding, opts.TargetEncoding)
	assert.False(t, opts.Recursive)
	assert.False(t, opts.DryRun)
	assert.False(t, opts.Verbose)
	assert.Empty(t, opts.SuffixPatterns)
	assert.Equal(t, converter.DefaultConcurrency, opts.Concurrency)
	assert.False(t, opts.Incremental)
	assert.Empty(t, opts.CachePath)
	assert.Equal(t, converter.DefaultCacheFormat, opts.CacheFormat)
	assert.Equal(t, converter.DefaultMinConfidence, opts.MinConfidence)
	assert.Positive(t, opts.MinConfidence, "statistical guesses need a floor by default")
	assert.True(t, opts.TuiEnabled)
}

func TestLoadAndValidate_IncrementalFlags(t *testing.T) {
	flags := newTestFlagSet(t, "-i", t.TempDir(), "-o", t.TempDir(), "--incremental", "--cache-file", "state/index.cache")
	opts, _, err := LoadAndValidate("", "dev", flags)
	require.NoError(t, err)
	assert.True(t, opts.Incremental)
	assert.True(t, filepath.IsAbs(opts.CachePath))
	assert.Equal(t, "index.cache", filepath.Base(opts.CachePath))
	assert.Equal(t, "state", filepath.Base(filepath.Dir(opts.CachePath)))
}

func TestLoadAndValidate_ConfigFileAndPrecedence(t *testing.T) {
	input := t.TempDir()
	cfg := createTempConfigFile(t, `
input: `+input+`
output: /tmp/chconv-config-out
to: ISO-8859-1
suffix: "txt"
recursive: true
concurrency: 2
inlineThreshold: 10
classify: false
growBuffer: false
outputFormat: yaml
`)

	t.Run("file values", func(t *testing.T) {
		opts, _, err := LoadAndValidate(cfg, "dev", newTestFlagSet(t))
		require.NoError(t, err)
		assert.Equal(t, cfg, opts.ConfigFilePath)
		assert.Equal(t, input, opts.InputPath)
		assert.Equal(t, "ISO-8859-1", opts.TargetEncoding)
		assert.Equal(t, "txt", opts.SuffixPatterns)
		assert.True(t, opts.Recursive)
		assert.Equal(t, 2, opts.Concurrency)
		assert.Equal(t, 10, opts.InlineThreshold)
		assert.False(t, opts.ClassifyContent)
		assert.False(t, opts.GrowOutputBuffer)
		assert.Equal(t, converter.OutputFormatYAML, opts.OutputFormat)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("CHCONV_TO", "UTF-16LE")
		opts, _, err := LoadAndValidate(cfg, "dev", newTestFlagSet(t))
		require.NoError(t, err)
		assert.Equal(t, "UTF-16LE", opts.TargetEncoding)
	})

	t.Run("flags override env and file", func(t *testing.T) {
		t.Setenv("CHCONV_TO", "UTF-16LE")
		opts, _, err := LoadAndValidate(cfg, "dev", newTestFlagSet(t, "--to", "GBK", "-j", "5", "--output-format", "JSON"))
		require.NoError(t, err)
		assert.Equal(t, "GBK", opts.TargetEncoding)
		assert.Equal(t, 5, opts.Concurrency)
		assert.Equal(t, converter.OutputFormatJSON, opts.OutputFormat, "format is case-insensitive")
	})
}

func TestLoadAndValidate_NoClassifyFlag(t *testing.T) {
	flags := newTestFlagSet(t, "-i", t.TempDir(), "-o", t.TempDir(), "--no-classify")
	opts, _, err := LoadAndValidate("", "dev", flags)
	require.NoError(t, err)
	assert.False(t, opts.ClassifyContent)
}

func TestLoadAndValidate_TuiToggle(t *testing.T) {
	testCases := []struct {
		name      string
		args      []string
		expectTui bool
	}{
		{"default", nil, true},
		{"no-tui flag", []string{"--no-tui"}, false},
		{"verbose disables tui", []string{"-v"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"-i", t.TempDir(), "-o", t.TempDir()}, tc.args...)
			opts, _, err := LoadAndValidate("", "dev", newTestFlagSet(t, args...))
			require.NoError(t, err)
			assert.Equal(t, tc.expectTui, opts.TuiEnabled)
		})
	}
}

func TestLoadAndValidate_Errors(t *testing.T) {
	existing := t.TempDir()
	tests := []struct {
		name     string
		args     []string
		env      string
		notFound bool
	}{
		{name: "missing input", args: []string{"-o", existing}},
		{name: "missing output", args: []string{"-i", existing}},
		{name: "input does not exist", args: []string{"-i", filepath.Join(existing, "nope"), "-o", existing}, notFound: true},
		{name: "bad output format", args: []string{"-i", existing, "-o", existing, "--output-format", "xml"}},
		{name: "negative concurrency", args: []string{"-i", existing, "-o", existing, "-j", "-1"}},
		{name: "bad cache format", args: []string{"-i", existing, "-o", existing}, env: "xml"},
		{name: "confidence out of range", args: []string{"-i", existing, "-o", existing, "--min-confidence", "150"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.env != "" {
				t.Setenv("CHCONV_CACHEFORMAT", tt.env)
			}
			_, _, err := LoadAndValidate("", "dev", newTestFlagSet(t, tt.args...))
			require.Error(t, err)
			assert.ErrorIs(t, err, converter.ErrConfigValidation)
			if tt.notFound {
				assert.ErrorIs(t, err, converter.ErrInputNotFound)
			}
		})
	}
}

func TestLoadAndValidate_ExplicitConfigMissing(t *testing.T) {
	flags := newTestFlagSet(t, "-i", t.TempDir(), "-o", t.TempDir())
	_, _, err := LoadAndValidate(filepath.Join(t.TempDir(), "absent.yaml"), "dev", flags)
	require.Error(t, err)
	assert.ErrorIs(t, err, converter.ErrConfigValidation)
}

func TestLoadAndValidate_SingleFileInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "one.txt")
	testutil.CreateDummyFile(t, file, "hello")

	opts, _, err := LoadAndValidate("", "dev", newTestFlagSet(t, "-i", file, "-o", filepath.Join(dir, "out.txt")))
	require.NoError(t, err)
	assert.Equal(t, file, opts.InputPath)
}
