// Package ui renders the end-of-run summary for terminal output.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stackvity/chconv/pkg/converter"
)

const (
	ColorHeaderFg = lipgloss.Color("252") // Light Gray
	ColorHeaderBg = lipgloss.Color("62")  // Purple
	ColorDimFg    = lipgloss.Color("244") // Dim gray

	ColorStatusSuccess = lipgloss.Color("40")  // Green
	ColorStatusFailed  = lipgloss.Color("196") // Red
	ColorStatusSkipped = lipgloss.Color("214") // Orange/Yellow
)

// styles holds the summary styles bound to one renderer, so color output
// follows the capabilities of the writer being rendered to.
type styles struct {
	header  lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	failed  lipgloss.Style
	skipped lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		header:  r.NewStyle().Bold(true).Foreground(ColorHeaderFg).Background(ColorHeaderBg).Padding(0, 1),
		label:   r.NewStyle().Foreground(ColorDimFg),
		success: r.NewStyle().Foreground(ColorStatusSuccess),
		failed:  r.NewStyle().Foreground(ColorStatusFailed).Bold(true),
		skipped: r.NewStyle().Foreground(ColorStatusSkipped),
	}
}

// RenderSummary writes a human-readable report to w: the converted count,
// the run parameters, every failed file and any diagnostics.
func RenderSummary(w io.Writer, report converter.Report) error {
	st := newStyles(lipgloss.NewRenderer(w))
	s := report.Summary
	var b strings.Builder

	verb := "converted"
	if s.DryRun {
		verb = "would convert"
	}
	verdict := st.success.Render("OK")
	if s.Verdict == converter.StatusFailed {
		verdict = st.failed.Render("FAILED")
	}
	fmt.Fprintf(&b, "%s %s %d of %d files (%s skipped, %s failed) in %s\n",
		st.header.Render("chconv"),
		verb,
		s.SucceededCount,
		s.TotalFiles,
		st.skipped.Render(fmt.Sprint(s.SkippedCount)),
		st.failed.Render(fmt.Sprint(s.FailedCount)),
		formatDuration(time.Duration(s.DurationSeconds*float64(time.Second))),
	)
	fmt.Fprintf(&b, "  %s %s\n", st.label.Render("verdict:"), verdict)
	fmt.Fprintf(&b, "  %s %s\n", st.label.Render("input:  "), s.InputPath)
	fmt.Fprintf(&b, "  %s %s\n", st.label.Render("output: "), s.OutputPath)
	fmt.Fprintf(&b, "  %s %s\n", st.label.Render("target: "), s.TargetEncoding)

	if s.FatalErrorOccurred {
		fmt.Fprintf(&b, "%s %s\n", st.failed.Render("error:"), s.FatalErrorMessage)
	}

	var failed []converter.FileResult
	for _, f := range report.Files {
		if f.Status == converter.StatusFailed {
			failed = append(failed, f)
		}
	}
	if len(failed) > 0 {
		b.WriteString(st.failed.Render("failed files:") + "\n")
		for _, f := range failed {
			reason := f.Message
			if reason == "" {
				reason = f.Error
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", st.failed.Render("✗"), f.Path, reason)
		}
	}

	for _, d := range s.Diagnostics {
		fmt.Fprintf(&b, "%s %s\n", st.skipped.Render("!"), d)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatDuration formats duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
