package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stackvity/chconv/internal/cli"
	"github.com/stackvity/chconv/internal/cli/config"
	"github.com/stackvity/chconv/pkg/converter"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chconv -i <input> -o <output>",
	Short: "Converts text files to a target character encoding.",
	Long: `chconv detects the character encoding of every file under an input path
and rewrites it into a target encoding (UTF-8 by default), mirroring the
directory layout under the output path.

Files can be selected by extension with --suffix and skipped by name, path
segment or pattern with --exclude. Both take ';'-separated rules; each rule is
a regular expression, or a literal substring when it does not compile.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Interrupts only take effect before the batch starts.
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, version, cmd.Flags())
		if err != nil {
			return err
		}
		return cli.Run(ctx, opts, logger, cmd.OutOrStdout())
	},
}

// versionString includes the detection and conversion backends.
func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)\n%s", version, commit, date, converter.Backends())
}

// Execute runs the root command and exits non-zero on any error.
func Execute() {
	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init registers the command's flags.
func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "Configuration file path (default is ./chconv.yaml, $HOME/.config/chconv/chconv.yaml)")

	flags.StringP("input", "i", "", "Required. Input file or directory.")
	flags.StringP("output", "o", "", "Required. Output file or directory.")
	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("output")

	flags.StringP("to", "t", converter.DefaultTargetEncoding, "Target encoding")
	flags.BoolP("recursive", "r", converter.DefaultRecursive, "Descend into subdirectories")
	flags.BoolP("dry-run", "d", converter.DefaultDryRun, "Report what would be converted without writing")
	flags.BoolP("verbose", "v", converter.DefaultVerbose, "Enable verbose (debug) logging output")
	flags.StringP("suffix", "s", "", `Only convert files whose extension matches one of these ';'-separated rules (e.g. "txt;md")`)
	flags.StringP("exclude", "e", "", `Skip paths matching one of these ';'-separated rules (e.g. "vendor;\.min\.js$")`)

	flags.IntP("concurrency", "j", converter.DefaultConcurrency, "Number of parallel workers (0 for auto-detect CPU cores)")
	flags.Bool("no-classify", false, "Convert every file, even ones whose content does not look like text")
	flags.Int("min-confidence", converter.DefaultMinConfidence, "Minimum detector confidence (0-100) for statistical guesses. Lower values accept very short legacy files but may mistake one encoding for another; 0 accepts any guess")
	flags.Bool("no-tui", false, "Show a progress bar instead of the interactive file list")
	flags.String("output-format", string(converter.DefaultOutputFormat), `Final report format ("text", "json", "yaml", "toml")`)
	flags.Bool("incremental", converter.DefaultIncremental, "Skip files unchanged since the last run, tracked in a cache index")
	flags.String("cache-file", "", "Cache index path for --incremental (default is .chconv.cache in the output root)")
}
