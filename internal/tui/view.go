package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/tui/theme"
)

// View renders the entire application.
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	switch m.mode {
	case ModeSelectConnection:
		return m.viewSelectConnection()
	case ModeConnect:
		return m.viewConnect()
	case ModeUsers:
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.StyleBorder.Width(m.width-2).Height(m.height-3).Render(m.users.View()),
			m.statusbar.View(),
		)
	default:
		return m.viewMain()
	}
}

func (m Model) viewSelectConnection() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(1, 0)
	subtitleStyle := lipgloss.NewStyle().Foreground(theme.ColorMuted)

	title := titleStyle.Render("dbdash")
	subtitle := subtitleStyle.Render("SQLite and PostgreSQL, from the terminal.")

	sectionTitle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Render("Saved Connections")

	var items []string
	for i, conn := range m.cfg.Connections {
		label := fmt.Sprintf("  %s (%s)", conn.Name, conn.DisplayString())
		if i == m.connCursor {
			label = lipgloss.NewStyle().
				Foreground(theme.ColorHighlight).
				Bold(true).
				Render("> " + conn.Name + " (" + conn.DisplayString() + ")")
		}
		items = append(items, label)
	}

	// "New connection" option
	newLabel := "  [New Connection]"
	if m.connCursor == len(m.cfg.Connections) {
		newLabel = lipgloss.NewStyle().
			Foreground(theme.ColorHighlight).
			Bold(true).
			Render("> [New Connection]")
	}
	items = append(items, "")
	items = append(items, newLabel)

	errMsg := m.errorLine()

	hints := theme.StyleMuted.Render("  ↑/↓: Navigate  Enter: Connect  n: New  q: Quit")

	parts := []string{
		"",
		title,
		subtitle,
		"",
		sectionTitle,
	}
	parts = append(parts, items...)
	if errMsg != "" {
		parts = append(parts, errMsg)
	}
	parts = append(parts, "", hints)

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
}

// errorLine renders the last connection error with its kind, if any.
func (m Model) errorLine() string {
	if m.err == nil {
		return ""
	}
	return "\n" + theme.StyleError.Render(fmt.Sprintf("  [%s] %s", app.ErrorKind(m.err), m.err.Error()))
}

func (m Model) viewConnect() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(1, 0)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorMuted)

	title := titleStyle.Render("dbdash")
	subtitle := subtitleStyle.Render("SQLite and PostgreSQL, from the terminal.")

	promptStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary)
	prompt := promptStyle.Render("Enter a PostgreSQL URL or SQLite file path:")

	errMsg := m.errorLine()

	backHint := ""
	if len(m.cfg.Connections) > 0 {
		backHint = "  Esc: Back │ "
	}
	hint := theme.StyleMuted.Render("  " + backHint + "Enter: Connect │ Ctrl+C: Quit")

	content := lipgloss.JoinVertical(lipgloss.Left,
		"",
		title,
		subtitle,
		"",
		prompt,
		"  "+m.connInput.View(),
		errMsg,
		"",
		hint,
	)

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
}

func (m Model) viewMain() string {
	explorerBorder := theme.StyleBorder
	if m.activePane == PaneExplorer {
		explorerBorder = theme.StyleActiveBorder
	}

	explorerWidth := m.explorerWidth()
	rightWidth := m.width - explorerWidth - 1

	statusHeight := 1
	availHeight := m.height - statusHeight - 2

	explorerView := explorerBorder.
		Width(explorerWidth - 2).
		Height(availHeight).
		Render(m.explorer.View())

	editorHeight := max(availHeight*40/100, 5)
	resultsHeight := availHeight - editorHeight - 2

	editorBorder := theme.StyleBorder
	if m.activePane == PaneEditor {
		editorBorder = theme.StyleActiveBorder
	}
	editorView := editorBorder.
		Width(rightWidth - 2).
		Height(editorHeight).
		Render(m.editor.View())

	resultsBorder := theme.StyleBorder
	if m.activePane == PaneResults {
		resultsBorder = theme.StyleActiveBorder
	}
	resultsView := resultsBorder.
		Width(rightWidth - 2).
		Height(resultsHeight).
		Render(m.results.View())

	rightPane := lipgloss.JoinVertical(lipgloss.Left,
		editorView,
		resultsView,
	)

	mainArea := lipgloss.JoinHorizontal(lipgloss.Top,
		explorerView,
		rightPane,
	)

	statusView := m.statusbar.View()

	return lipgloss.JoinVertical(lipgloss.Left,
		mainArea,
		statusView,
	)
}

// helpSection is one titled block of key bindings.
type helpSection struct {
	title string
	keys  [][2]string
}

var helpSections = []helpSection{
	{"Global", [][2]string{
		{"q / Ctrl+C", "Quit (stops the API, closes the connection)"},
		{"Tab", "Switch between panes"},
		{"Shift+Tab", "Switch panes (reverse)"},
		{"Ctrl+S", "Start or stop the HTTP API"},
		{"Ctrl+U", "Users: list, change role, delete"},
		{"?", "Toggle this help"},
	}},
	{"Explorer", [][2]string{
		{"↑/k  ↓/j", "Navigate up/down"},
		{"Enter/→/l", "Expand table, load columns"},
		{"←/h", "Collapse item"},
		{"s", "SELECT * ... LIMIT 100"},
		{"d", "Count rows"},
	}},
	{"Editor", [][2]string{
		{"Ctrl+E / F5", "Execute statement"},
		{"Ctrl+K", "Clear editor"},
		{"Ctrl+L", "Uppercase SQL keywords"},
		{"Tab", "Complete / cycle table names"},
		{"Ctrl+P / Ctrl+N", "Previous / next statement"},
		{"Esc", "Cancel completion"},
	}},
	{"Results", [][2]string{
		{"↑↓←→ / hjkl", "Move the cell cursor"},
		{"PgUp/PgDn g/G", "Page, first row, last row"},
		{"c  y  Y  t", "Copy cell, row JSON, row CSV, row text"},
		{"f", "Filter by the selected value"},
		{"D", "Draft a DELETE for the row"},
		{"e  E", "Export JSON, CSV to the storage dir"},
	}},
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true)

	sectionStyle := lipgloss.NewStyle().
		Foreground(theme.ColorHighlight).
		Bold(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Width(18)

	descStyle := lipgloss.NewStyle().
		Foreground(theme.ColorMuted)

	lines := []string{titleStyle.Render("dbdash - Keyboard Shortcuts")}
	for _, sec := range helpSections {
		lines = append(lines, "", sectionStyle.Render(sec.title))
		for _, k := range sec.keys {
			lines = append(lines, keyStyle.Render("  "+k[0])+descStyle.Render(k[1]))
		}
	}
	lines = append(lines, "", theme.StyleMuted.Render("Press any key to close"))

	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Left, lines...),
	)
}
