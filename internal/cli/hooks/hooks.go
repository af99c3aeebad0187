package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"
	"github.com/stackvity/chconv/pkg/converter"
)

// --- TUI Message Structs ---

// FileDiscoveredMsg signals that the walker visited a path.
type FileDiscoveredMsg struct{ Path string }

// DiscoveryCompleteMsg carries the number of files queued for conversion.
type DiscoveryCompleteMsg struct{ Total int }

// FileStatusUpdateMsg signals a change in a file's processing status.
type FileStatusUpdateMsg struct {
	Path     string
	Status   converter.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg signals the completion of the entire conversion run.
type RunCompleteMsg struct{ Report converter.Report }

// CLIHooks implements the converter.Hooks interface, bridging library events
// to the CLI's output (TUI, logger or progress bar).
type CLIHooks struct {
	logger         *slog.Logger
	verboseEnabled bool
	tuiProgram     TUIProgram  // nil unless TUI mode is active
	progressBar    ProgressBar // nil unless progress mode is active
	out            io.Writer
	mu             sync.Mutex // Protects concurrent access to progressBar
}

// TUIProgram defines the interface needed to interact with the Bubble Tea
// program. *tea.Program satisfies it.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar defines the interface needed to interact with the progress bar.
// *progressbar.ProgressBar satisfies it.
type ProgressBar interface {
	Add(num int) error
	ChangeMax(max int)
	Close() error
}

// NewProgressBar returns a counter-style bar writing to w. Its maximum is
// unknown until discovery completes.
func NewProgressBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("converting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

// NewCLIHooks creates a new CLIHooks instance. Verbose mode logs every event
// and ignores tuiProg and progBar. Otherwise a non-nil tuiProg receives every
// event as a message and progBar is ignored; a non-nil progBar is advanced
// once per finished file. Failures themselves are logged by the library.
// out receives the line break printed after the bar closes.
func NewCLIHooks(logger *slog.Logger, verboseEnabled bool, tuiProg TUIProgram, progBar ProgressBar, out io.Writer) converter.Hooks {
	if verboseEnabled {
		tuiProg = nil
		progBar = nil
	}
	if tuiProg != nil {
		progBar = nil
	}
	if out == nil {
		out = io.Discard
	}
	return &CLIHooks{
		logger:         logger,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
		progressBar:    progBar,
		out:            out,
	}
}

// OnFileDiscovered handles the event when a file or directory is found by the walker.
func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiProgram != nil {
		h.tuiProgram.Send(FileDiscoveredMsg{Path: path})
		return nil
	}
	if h.verboseEnabled {
		h.logger.Debug("File discovered", slog.String("path", path))
	}
	return nil
}

// OnDiscoveryComplete sets the progress bar's maximum to the work item count.
func (h *CLIHooks) OnDiscoveryComplete(total int) error {
	if h.tuiProgram != nil {
		h.tuiProgram.Send(DiscoveryCompleteMsg{Total: total})
		return nil
	}
	if h.verboseEnabled {
		h.logger.Debug("Discovery complete", slog.Int("files", total))
		return nil
	}
	if h.progressBar != nil {
		h.mu.Lock()
		h.progressBar.ChangeMax(total)
		h.mu.Unlock()
	}
	return nil
}

// OnFileStatusUpdate handles events when a file's processing status changes.
// This method MUST be thread-safe.
func (h *CLIHooks) OnFileStatusUpdate(path string, status converter.Status, message string, duration time.Duration) error {
	if h.tuiProgram != nil {
		h.tuiProgram.Send(FileStatusUpdateMsg{Path: path, Status: status, Message: message, Duration: duration})
		return nil
	}
	if h.verboseEnabled {
		logLevel := slog.LevelDebug
		logMsg := "File status updated"
		attrs := []slog.Attr{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			logKey := "message"
			if status == converter.StatusFailed {
				logKey = "error"
			}
			attrs = append(attrs, slog.String(logKey, message))
		}

		// Failures are already logged at Error by the processor.
		if status == converter.StatusSkipped {
			logLevel = slog.LevelInfo
		}
		h.logger.LogAttrs(context.Background(), logLevel, logMsg, attrs...)
		return nil
	}

	if h.progressBar != nil && status.IsTerminal() {
		h.mu.Lock()
		defer h.mu.Unlock()
		_ = h.progressBar.Add(1)
	}
	return nil
}

// OnRunComplete hands the report to the TUI or finalizes the progress bar.
// The summary itself is rendered by the caller.
func (h *CLIHooks) OnRunComplete(report converter.Report) error {
	if h.tuiProgram != nil {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}
	if h.progressBar == nil {
		return nil
	}
	h.mu.Lock()
	_ = h.progressBar.Close()
	h.mu.Unlock()
	_, _ = fmt.Fprintln(h.out)
	return nil
}
