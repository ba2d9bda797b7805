package editor

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dbdash/internal/tui/theme"
)

// ExecuteQueryMsg is sent when the user triggers query execution.
type ExecuteQueryMsg struct {
	Query string
}

// Model is the SQL query editor component.
type Model struct {
	textarea textarea.Model
	width    int
	height   int
	focused  bool

	// Completion state
	tableNames  []string // cached table names from database
	completing  bool     // in completion mode
	completions []string // current candidates
	compIndex   int      // which candidate is active

	// Executed statements, oldest first
	history []string
	histPos int // len(history) when not browsing
	draft   string
}

// historyLimit bounds the statements kept for ctrl+p / ctrl+n.
const historyLimit = 100

// New creates a new editor model.
func New() Model {
	ta := textarea.New()
	ta.Placeholder = "Enter SQL statement..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0 // unlimited
	ta.Prompt = "│ "
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle()
	ta.BlurredStyle.Base = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.ColorMuted)
	ta.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.ColorMuted)
	ta.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorPrimary)
	ta.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(theme.ColorBorder)

	return Model{
		textarea: ta,
	}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.textarea.SetWidth(w - 2)
	m.textarea.SetHeight(h - 2)
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
	if f {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

// Focused returns whether the editor has focus.
func (m Model) Focused() bool {
	return m.focused
}

// Value returns the current editor content.
func (m Model) Value() string {
	return m.textarea.Value()
}

// SetQuery replaces the editor content.
func (m *Model) SetQuery(query string) {
	m.textarea.SetValue(query)
}

// SetTableNames sets the available table names for autocompletion.
func (m *Model) SetTableNames(names []string) {
	m.tableNames = names
}

// CompletionActive reports whether Tab is cycling completion candidates.
func (m Model) CompletionActive() bool {
	return m.completing
}

// Clear empties the editor.
func (m *Model) Clear() {
	m.textarea.Reset()
	m.cancelCompletion()
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the editor.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()

		switch key {
		case "ctrl+e", "f5":
			query := strings.TrimSpace(m.textarea.Value())
			if query != "" {
				m.cancelCompletion()
				m.remember(query)
				return m, func() tea.Msg {
					return ExecuteQueryMsg{Query: query}
				}
			}
			return m, nil

		case "ctrl+k":
			m.Clear()
			return m, nil

		case "ctrl+p":
			m.historyPrev()
			return m, nil

		case "ctrl+n":
			m.historyNext()
			return m, nil

		case "ctrl+l":
			m.textarea.SetValue(FormatKeywords(m.textarea.Value()))
			return m, nil

		case "tab":
			// Try table name completion
			if m.tryCompletion() {
				return m, nil
			}
			// If no completions, fall through to textarea

		case "esc":
			if m.completing {
				m.cancelCompletion()
				return m, nil
			}
		}

		// Any key other than Tab/Esc cancels completion mode
		if m.completing && key != "tab" && key != "esc" {
			m.cancelCompletion()
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// remember appends query to the history unless it repeats the last entry.
func (m *Model) remember(query string) {
	if n := len(m.history); n == 0 || m.history[n-1] != query {
		m.history = append(m.history, query)
		if len(m.history) > historyLimit {
			m.history = m.history[len(m.history)-historyLimit:]
		}
	}
	m.histPos = len(m.history)
	m.draft = ""
}

func (m *Model) historyPrev() {
	if m.histPos == 0 || len(m.history) == 0 {
		return
	}
	if m.histPos == len(m.history) {
		m.draft = m.textarea.Value()
	}
	m.histPos--
	m.textarea.SetValue(m.history[m.histPos])
}

func (m *Model) historyNext() {
	if m.histPos >= len(m.history) {
		return
	}
	m.histPos++
	if m.histPos == len(m.history) {
		m.textarea.SetValue(m.draft)
		return
	}
	m.textarea.SetValue(m.history[m.histPos])
}

// History returns the executed statements, oldest first.
func (m Model) History() []string {
	return m.history
}

// tryCompletion completes the table name being typed at the end of the
// text, or cycles to the next candidate. It reports whether Tab was consumed.
func (m *Model) tryCompletion() bool {
	if m.completing && len(m.completions) > 0 {
		m.compIndex = (m.compIndex + 1) % len(m.completions)
		m.applyCompletion()
		return true
	}

	val := m.textarea.Value()
	partial := lastWord(val)
	if partial == "" || !expectsTable(val) {
		return false
	}

	matches := matchTables(m.tableNames, partial)
	if len(matches) == 0 {
		return false
	}

	m.completing = true
	m.completions = matches
	m.compIndex = 0
	m.applyCompletion()
	return true
}

// applyCompletion replaces the partial word with the current completion candidate.
func (m *Model) applyCompletion() {
	if len(m.completions) == 0 {
		return
	}

	val := m.textarea.Value()
	// Remove the partial (or previous completion) from the end
	base := strings.TrimSuffix(val, lastWord(val))
	newVal := base + m.completions[m.compIndex]
	m.textarea.SetValue(newVal)
}

func (m *Model) cancelCompletion() {
	m.completing = false
	m.completions = nil
	m.compIndex = 0
}

// View renders the editor.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	title := titleStyle.Render("Query Editor")

	var completionHint string
	if m.completing && len(m.completions) > 1 {
		hint := make([]string, 0, len(m.completions))
		for i, c := range m.completions {
			if i == m.compIndex {
				hint = append(hint, lipgloss.NewStyle().Foreground(theme.ColorHighlight).Bold(true).Render(c))
			} else {
				hint = append(hint, theme.StyleMuted.Render(c))
			}
		}
		completionHint = "\n" + lipgloss.NewStyle().Padding(0, 1).Render(
			theme.StyleMuted.Render("Tab: ")+strings.Join(hint, " │ "),
		)
	}

	return title + "\n" + m.textarea.View() + completionHint
}
