package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stackvity/chconv/internal/cli/hooks"
	"github.com/stackvity/chconv/internal/cli/ui"
	"github.com/stackvity/chconv/pkg/converter"
	"golang.org/x/term"
)

// isTerminal reports whether stderr is a TTY. Tests replace it.
var isTerminal = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }

// tuiRunner is the part of *tea.Program Run drives.
type tuiRunner interface {
	hooks.TUIProgram
	Run() (tea.Model, error)
	Quit()
}

// newProgram builds the interactive view. Tests replace it.
var newProgram = func(m tea.Model) tuiRunner {
	return tea.NewProgram(m, tea.WithOutput(os.Stderr))
}

// Run orchestrates the main application logic after configuration loading.
// It converts according to opts, writes the summary or encoded report to out
// and returns a non-nil error when the run failed as a whole or any file
// failed.
func Run(ctx context.Context, opts converter.Options, logger *slog.Logger, out io.Writer) error {
	var report converter.Report
	var err error
	switch {
	case opts.EventHooks == nil && opts.TuiEnabled && !opts.Verbose && isTerminal():
		report, err = runWithTUI(ctx, opts, logger)
	default:
		if opts.EventHooks == nil {
			var bar hooks.ProgressBar
			if !opts.Verbose && isTerminal() {
				bar = hooks.NewProgressBar(os.Stderr)
			}
			opts.EventHooks = hooks.NewCLIHooks(logger, opts.Verbose, nil, bar, os.Stderr)
		}
		report, err = converter.Convert(ctx, opts)
	}
	if err != nil && !report.Summary.FatalErrorOccurred {
		// Nothing ran: cancelled or invalid options.
		logger.Error("Conversion did not start", slog.String("error", err.Error()))
		return err
	}

	if renderErr := render(out, report, opts.OutputFormat); renderErr != nil {
		logger.Error("Failed to write report", slog.String("error", renderErr.Error()))
		return errors.Join(err, renderErr)
	}
	if err != nil {
		return err
	}

	if report.Summary.Verdict == converter.StatusFailed {
		return fmt.Errorf("%w: %d of %d files failed", converter.ErrBatchFailed, report.Summary.FailedCount, report.Summary.TotalFiles)
	}
	return nil
}

// runWithTUI converts while the interactive file list owns the terminal.
// Library logs are discarded until the view exits. Quitting the view
// cancels the conversion.
func runWithTUI(ctx context.Context, opts converter.Options, logger *slog.Logger) (converter.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := newProgram(ui.NewModel(opts.AppVersion, opts.InputPath))
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Logger = quiet.Handler()
	opts.EventHooks = hooks.NewCLIHooks(quiet, false, prog, nil, os.Stderr)

	done := make(chan error, 1)
	go func() {
		final, runErr := prog.Run()
		if m, ok := final.(*ui.Model); ok && m.Interrupted() {
			cancel()
		}
		done <- runErr
	}()

	report, err := converter.Convert(ctx, opts)
	prog.Quit()
	if tuiErr := <-done; tuiErr != nil {
		logger.Warn("Interactive view exited with an error", slog.String("error", tuiErr.Error()))
	}
	return report, err
}

func render(out io.Writer, report converter.Report, format converter.OutputFormat) error {
	if format == "" || format == converter.OutputFormatText {
		return ui.RenderSummary(out, report)
	}
	return report.Encode(out, format)
}
