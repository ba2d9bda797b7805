package statusbar

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dbdash/internal/tui/theme"
)

// Model is the status bar component.
type Model struct {
	width      int
	connected  bool
	connName   string
	activePane string
	message    string
	errKind    string

	serving    bool
	serverAddr string
}

// New creates a new status bar model.
func New() Model {
	return Model{
		activePane: "explorer",
	}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetConnected updates the connection status display.
func (m *Model) SetConnected(connected bool, name string) {
	m.connected = connected
	m.connName = name
}

// SetActivePane updates the displayed active pane name.
func (m *Model) SetActivePane(pane string) {
	m.activePane = pane
}

// SetMessage sets a temporary status message and clears any error.
func (m *Model) SetMessage(msg string) {
	m.message = msg
	m.errKind = ""
}

// SetError shows msg tagged with the error kind.
func (m *Model) SetError(kind, msg string) {
	m.message = msg
	m.errKind = kind
}

// SetServer updates the API server indicator.
func (m *Model) SetServer(running bool, addr string) {
	m.serving = running
	m.serverAddr = addr
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages (status bar has no interactive behavior).
func (m Model) Update(_ tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	// Connection indicator
	var left string
	if m.connected {
		left = lipgloss.NewStyle().
			Foreground(theme.ColorSuccess).
			Render("●") + " " + m.connName
	} else {
		left = lipgloss.NewStyle().
			Foreground(theme.ColorError).
			Render("●") + " disconnected"
	}
	if m.serving {
		left += "  " + lipgloss.NewStyle().
			Foreground(theme.ColorWarning).
			Render("⇄") + " api " + m.serverAddr
	}

	hints := "Ctrl+E: Execute │ Tab: Switch pane │ Ctrl+S: API │ Ctrl+U: Users │ ?: Help │ q: Quit"

	right := hints
	switch {
	case m.errKind != "":
		right = theme.StyleError.Render("["+m.errKind+"]") + " " + m.message
	case m.message != "":
		right = m.message
	}

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)
	padding := m.width - leftLen - rightLen - 4 // borders + spacing
	if padding < 1 {
		padding = 1
	}

	bar := left + strings.Repeat(" ", padding) + right

	return style.Render(bar)
}
