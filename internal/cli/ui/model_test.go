package ui

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stackvity/chconv/internal/cli/hooks"
	"github.com/stackvity/chconv/pkg/converter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestModel returns a model that has already seen a window size.
func newTestModel(t *testing.T, width, height int) *Model {
	t.Helper()
	m := NewModel("1.0.0", "/in")
	_, _ = m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	require.True(t, m.initialized)
	return m
}

func TestModel_Init(t *testing.T) {
	m := newTestModel(t, 80, 25)
	cmd := m.Init()
	require.NotNil(t, cmd)
	_, ok := cmd().(spinner.TickMsg)
	assert.True(t, ok, "Init should start the spinner")
}

func TestModel_Update_Quit(t *testing.T) {
	testCases := map[string]tea.KeyMsg{
		"q":      {Type: tea.KeyRunes, Runes: []rune("q")},
		"ctrl+c": {Type: tea.KeyCtrlC},
	}
	for name, key := range testCases {
		t.Run(name, func(t *testing.T) {
			m := newTestModel(t, 80, 25)
			newModel, cmd := m.Update(key)
			require.NotNil(t, cmd)

			updated, ok := newModel.(*Model)
			require.True(t, ok)
			assert.True(t, updated.Interrupted())
			assert.Equal(t, tea.Quit(), cmd())
			assert.Equal(t, "Exiting...\n", updated.View())
		})
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	m := NewModel("", "/in")
	assert.Equal(t, phaseInitializing, m.View(), "nothing is drawn before the first size")

	_, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Nil(t, cmd)
	assert.True(t, m.initialized)
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 30, m.height)
	assert.Equal(t, 30-listHeightMargin, m.list.Height())
	assert.Equal(t, "dev", m.version, "empty version falls back to dev")
}

func TestModel_Update_DiscoveryPhases(t *testing.T) {
	m := newTestModel(t, 80, 25)

	_, _ = m.Update(hooks.FileDiscoveredMsg{Path: "a.txt"})
	_, _ = m.Update(hooks.FileDiscoveredMsg{Path: "sub"})
	assert.Equal(t, phaseScanning, m.phaseMessage)
	assert.Equal(t, 2, m.Summary().Scanned)
	assert.Empty(t, m.fileItems, "discovery alone does not list entries")

	_, _ = m.Update(hooks.DiscoveryCompleteMsg{Total: 5})
	assert.Equal(t, phaseConverting, m.phaseMessage)
	assert.Equal(t, 5, m.Summary().Queued)
}

func TestModel_Update_FileStatus(t *testing.T) {
	m := newTestModel(t, 80, 25)

	_, cmd := m.Update(hooks.FileStatusUpdateMsg{Path: "/in/sub/a.txt", Status: converter.StatusProcessing})
	require.NotNil(t, cmd, "the first update schedules a list refresh")
	require.Len(t, m.fileItems, 1)
	assert.Equal(t, "sub/a.txt", m.fileItems[0].path, "paths are shown relative to the input root")
	assert.Zero(t, m.Summary().Converted)

	_, cmd = m.Update(hooks.FileStatusUpdateMsg{Path: "/in/sub/a.txt", Status: converter.StatusSuccess, Message: "converted", Duration: time.Millisecond})
	assert.Nil(t, cmd, "a refresh is already pending")
	require.Len(t, m.fileItems, 1, "updates for the same path reuse the item")
	assert.Equal(t, converter.StatusSuccess, m.fileItems[0].status)

	_, _ = m.Update(hooks.FileStatusUpdateMsg{Path: "/in/sub/a.txt", Status: converter.StatusSuccess})
	_, _ = m.Update(hooks.FileStatusUpdateMsg{Path: "/in/b.txt", Status: converter.StatusSkipped, Message: "empty file"})
	_, _ = m.Update(hooks.FileStatusUpdateMsg{Path: "/in/c.txt", Status: converter.StatusFailed, Message: "unknown encoding"})
	_, _ = m.Update(hooks.FileStatusUpdateMsg{Path: "d.log", Status: converter.StatusFiltered, Message: "suffix"})

	summary := m.Summary()
	assert.Equal(t, 1, summary.Converted, "a file is counted once")
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Filtered)
	assert.Equal(t, "d.log", m.fileItems[3].path)

	assert.Empty(t, m.list.Items(), "items reach the list on refresh")
	_, _ = m.Update(refreshListMsg{})
	assert.False(t, m.refreshPending)
	assert.Len(t, m.list.Items(), 4)
}

func TestModel_Update_RunComplete(t *testing.T) {
	m := newTestModel(t, 120, 25)
	_, _ = m.Update(hooks.FileStatusUpdateMsg{Path: "/in/a.txt", Status: converter.StatusSuccess})

	report := converter.Report{Summary: converter.ReportSummary{
		TotalFiles:         3,
		SucceededCount:     2,
		SkippedCount:       1,
		FatalErrorOccurred: true,
		FatalErrorMessage:  "disk full",
	}}
	_, cmd := m.Update(hooks.RunCompleteMsg{Report: report})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, phaseComplete, m.phaseMessage)
	assert.False(t, m.Interrupted())

	summary := m.Summary()
	assert.Equal(t, 3, summary.Queued)
	assert.Equal(t, 2, summary.Converted)
	assert.Equal(t, 1, summary.Skipped)
	assert.Len(t, m.list.Items(), 1, "the list is refreshed immediately")

	_, cmd = m.Update(spinner.TickMsg{})
	assert.Nil(t, cmd, "the spinner stops once the run is complete")

	view := m.View()
	assert.Contains(t, view, "chconv 1.0.0")
	assert.Contains(t, view, phaseComplete)
	assert.Contains(t, view, "Fatal error: disk full")
	assert.Contains(t, view, "Converted: 2/3")
	assert.Contains(t, view, "Skipped: 1")
	assert.Contains(t, view, "a.txt")
}

func TestListItem_Description(t *testing.T) {
	testCases := []struct {
		name   string
		item   listItem
		expect []string
	}{
		{"success with duration", listItem{status: converter.StatusSuccess, message: "converted", duration: 1500 * time.Millisecond}, []string{"[✓]", "converted", "1.50s"}},
		{"failed", listItem{status: converter.StatusFailed, message: "boom"}, []string{"[✗]", "boom"}},
		{"skipped", listItem{status: converter.StatusSkipped, message: "empty file"}, []string{"[S]", "empty file"}},
		{"filtered", listItem{status: converter.StatusFiltered, message: "suffix"}, []string{"[-]", "suffix"}},
		{"processing", listItem{status: converter.StatusProcessing}, []string{"[…]"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			desc := tc.item.Description()
			for _, want := range tc.expect {
				assert.Contains(t, desc, want)
			}
		})
	}
}

func TestModel_DisplayPath(t *testing.T) {
	m := NewModel("dev", "/in")
	assert.Equal(t, "a/b.txt", m.displayPath("/in/a/b.txt"))
	assert.Equal(t, "rel.txt", m.displayPath("rel.txt"))
	assert.Equal(t, "/other/x.txt", m.displayPath("/other/x.txt"))
	assert.Equal(t, "/in", m.displayPath("/in"), "a single-file input keeps its absolute path")
}
