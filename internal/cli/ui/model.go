package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stackvity/chconv/internal/cli/hooks"
	"github.com/stackvity/chconv/pkg/converter"
)

const listHeightMargin = 4 // header, footer and padding

const (
	phaseInitializing = "Initializing..."
	phaseScanning     = "Scanning..."
	phaseConverting   = "Converting..."
	phaseComplete     = "Complete"
)

// Model is the interactive view of a conversion run: a scrolling list of
// files with their status, a spinner while work is in flight and a footer
// with running counts.
type Model struct {
	list    list.Model
	spinner spinner.Model

	width       int
	height      int
	initialized bool

	version   string
	inputRoot string

	fileItems []listItem
	itemMap   map[string]int // path -> index in fileItems

	summary      Summary
	phaseMessage string
	fatalError   string
	quitting     bool

	// refreshPending is set while a list refresh tick is scheduled.
	refreshPending bool
}

// listItem is one file in the list.
type listItem struct {
	path     string
	status   converter.Status
	message  string
	duration time.Duration
}

// Summary holds the counts displayed in the footer.
type Summary struct {
	Scanned   int
	Queued    int
	Converted int
	Skipped   int
	Failed    int
	Filtered  int
	StartTime time.Time
}

// NewModel creates the initial model. Absolute paths under inputRoot are
// shown relative to it.
func NewModel(version, inputRoot string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusProcessing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorDimFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	if version == "" {
		version = "dev"
	}
	return &Model{
		list:         l,
		spinner:      s,
		version:      version,
		inputRoot:    inputRoot,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: phaseInitializing,
		fileItems:    make([]listItem, 0, 256),
		itemMap:      make(map[string]int),
	}
}

// Interrupted reports whether the user quit the view.
func (m *Model) Interrupted() bool {
	return m.quitting
}

// Summary returns the counts shown in the footer.
func (m *Model) Summary() Summary {
	return m.summary
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles terminal events and the messages sent by the CLI hooks.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(m.width, max(m.height-listHeightMargin, 1))
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.phaseMessage == phaseComplete {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.FileDiscoveredMsg:
		m.summary.Scanned++
		if m.phaseMessage == phaseInitializing {
			m.phaseMessage = phaseScanning
		}

	case hooks.DiscoveryCompleteMsg:
		m.summary.Queued = msg.Total
		m.phaseMessage = phaseConverting

	case hooks.FileStatusUpdateMsg:
		m.applyStatus(msg)
		cmds = append(cmds, m.scheduleRefresh())

	case hooks.RunCompleteMsg:
		m.phaseMessage = phaseComplete
		s := msg.Report.Summary
		m.summary.Queued = s.TotalFiles
		m.summary.Converted = s.SucceededCount
		m.summary.Skipped = s.SkippedCount
		m.summary.Failed = s.FailedCount
		if s.FatalErrorOccurred {
			m.fatalError = "Fatal error: " + s.FatalErrorMessage
		}
		m.refreshItems()
		return m, tea.Quit

	case refreshListMsg:
		m.refreshPending = false
		m.refreshItems()
	}

	return m, tea.Batch(cmds...)
}

// applyStatus records a status update, adding the file on first sight and
// counting each file once when it reaches a verdict.
func (m *Model) applyStatus(msg hooks.FileStatusUpdateMsg) {
	idx, ok := m.itemMap[msg.Path]
	if !ok {
		m.fileItems = append(m.fileItems, listItem{path: m.displayPath(msg.Path)})
		idx = len(m.fileItems) - 1
		m.itemMap[msg.Path] = idx
	}
	item := &m.fileItems[idx]
	if !isCounted(item.status) {
		m.incrementSummaryCount(msg.Status)
	}
	item.status = msg.Status
	item.message = msg.Message
	item.duration = msg.Duration
}

func (m *Model) displayPath(path string) string {
	if m.inputRoot == "" || !filepath.IsAbs(path) {
		return path
	}
	if rel, err := filepath.Rel(m.inputRoot, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// isCounted reports whether a status already contributed to the footer.
func isCounted(status converter.Status) bool {
	return status.IsTerminal() || status == converter.StatusFiltered
}

func (m *Model) incrementSummaryCount(status converter.Status) {
	switch status {
	case converter.StatusSuccess:
		m.summary.Converted++
	case converter.StatusSkipped:
		m.summary.Skipped++
	case converter.StatusFailed:
		m.summary.Failed++
	case converter.StatusFiltered:
		m.summary.Filtered++
	}
}

// View renders the header, the file list and the footer.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return phaseInitializing
	}

	headerLeft := fmt.Sprintf("chconv %s", m.version)
	headerRight := m.phaseMessage
	if m.phaseMessage != phaseComplete && m.phaseMessage != phaseInitializing {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	header := HeaderStyle.Width(m.width).Render(spread(m.width, headerLeft, headerRight))

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	footerLeft := fmt.Sprintf("Converted: %d/%d | Skipped: %d | Failed: %d | Filtered: %d | Elapsed: %s",
		m.summary.Converted,
		m.summary.Queued,
		m.summary.Skipped,
		m.summary.Failed,
		m.summary.Filtered,
		elapsed,
	)
	footer := FooterStyle.Width(m.width).Render(spread(m.width, footerLeft, "q: quit"))

	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), errorView, footer)
}

// spread places left and right at the edges of a line width cells wide.
func spread(width int, left, right string) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// FilterValue implements the list.Item interface.
func (i listItem) FilterValue() string { return i.path }

// Title implements the list.Item interface.
func (i listItem) Title() string { return i.path }

// Description implements the list.Item interface.
func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	var statusIcon string
	switch i.status {
	case converter.StatusSuccess:
		statusStyle, statusIcon = StatusStyleSuccess, "✓"
	case converter.StatusFailed:
		statusStyle, statusIcon = StatusStyleFailed, "✗"
	case converter.StatusSkipped:
		statusStyle, statusIcon = StatusStyleSkipped, "S"
	case converter.StatusFiltered:
		statusStyle, statusIcon = StatusStylePending, "-"
	case converter.StatusProcessing:
		statusStyle, statusIcon = StatusStyleProcessing, "…"
	default:
		statusStyle, statusIcon = StatusStylePending, " "
	}

	details := i.message
	if i.status == converter.StatusSuccess && i.duration > 0 {
		details = strings.TrimSpace(i.message + " " + formatDuration(i.duration))
	}
	return strings.TrimRight(fmt.Sprintf("%s %s", statusStyle.Render("["+statusIcon+"]"), details), " ")
}

// refreshListMsg asks the model to copy its items into the list component.
type refreshListMsg struct{}

const listRefreshInterval = 50 * time.Millisecond

// scheduleRefresh coalesces bursts of status updates into one list refresh.
func (m *Model) scheduleRefresh() tea.Cmd {
	if m.refreshPending {
		return nil
	}
	m.refreshPending = true
	return tea.Tick(listRefreshInterval, func(time.Time) tea.Msg { return refreshListMsg{} })
}

func (m *Model) refreshItems() {
	items := make([]list.Item, len(m.fileItems))
	for i, item := range m.fileItems {
		items[i] = item
	}
	m.list.SetItems(items)
}

// --- Styles ---

const (
	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56") // Dark Pink/Purple

	ColorNormalFg       = lipgloss.Color("250") // Off-white
	ColorSelectedFg     = lipgloss.Color("255") // White
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248") // Lighter Gray

	ColorStatusProcessing = lipgloss.Color("205") // Pink (matches spinner)
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorDimFg)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)
