package results

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/tui/theme"
)

// maxColWidth caps a column so one long text value cannot push the rest off screen.
const maxColWidth = 40

// Model is the query results component.
type Model struct {
	result    *app.Result
	cells     [][]string
	err       error
	errKind   string
	width     int
	height    int
	focused   bool
	loading   bool
	colWidths []int

	cursorX int
	cursorY int
	scrollY int

	lastQuery     string
	statusMessage string
	exportDir     string
}

// New creates a new results model.
func New() Model {
	return Model{}
}

// SetSize updates the component dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused sets the focus state.
func (m *Model) SetFocused(f bool) {
	m.focused = f
}

// Focused returns whether the results pane has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetExportDir sets where exports are written. Empty means the working directory.
func (m *Model) SetExportDir(dir string) {
	m.exportDir = dir
}

// SetResult sets the statement result to display.
func (m *Model) SetResult(r *app.Result) {
	m.result = r
	m.err = nil
	m.errKind = ""
	m.cursorX, m.cursorY, m.scrollY = 0, 0, 0
	m.loading = false
	if r != nil {
		m.lastQuery = r.Statement
	}
	m.buildCells()
	m.calculateColumnWidths()
}

// SetError sets an error to display, labelled with its kind.
func (m *Model) SetError(err error) {
	m.err = err
	m.errKind = app.ErrorKind(err)
	m.result = nil
	m.cells = nil
	m.colWidths = nil
	m.cursorX, m.cursorY, m.scrollY = 0, 0, 0
	m.loading = false
}

// Result returns the displayed result, if any.
func (m Model) Result() *app.Result {
	return m.result
}

// buildCells renders every value once so drawing and copying agree.
func (m *Model) buildCells() {
	m.cells = nil
	if m.result == nil {
		return
	}
	m.cells = make([][]string, len(m.result.Records))
	for i, rec := range m.result.Records {
		row := make([]string, 0, rec.Len())
		for _, v := range rec.All() {
			row = append(row, v.String())
		}
		m.cells[i] = row
	}
}

func (m *Model) calculateColumnWidths() {
	if m.result == nil || len(m.result.Columns) == 0 {
		m.colWidths = nil
		return
	}

	m.colWidths = make([]int, len(m.result.Columns))

	// Use display width (not byte length) for accurate measurement
	for i, col := range m.result.Columns {
		m.colWidths[i] = lipgloss.Width(col)
	}

	for _, row := range m.cells {
		for i, cell := range row {
			w := lipgloss.Width(cell)
			if i < len(m.colWidths) && w > m.colWidths[i] {
				m.colWidths[i] = w
			}
		}
	}

	for i := range m.colWidths {
		m.colWidths[i] = min(max(m.colWidths[i], 1), maxColWidth)
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the results pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	rows := len(m.cells)
	var cmd tea.Cmd

	switch key.String() {
	case "up", "k":
		if m.cursorY > 0 {
			m.cursorY--
		}
	case "down", "j":
		if m.cursorY < rows-1 {
			m.cursorY++
		}
	case "left", "h":
		if m.cursorX > 0 {
			m.cursorX--
		}
	case "right", "l":
		if m.result != nil && m.cursorX < len(m.result.Columns)-1 {
			m.cursorX++
		}
	case "home", "g":
		m.cursorY = 0
	case "end", "G":
		m.cursorY = max(0, rows-1)
	case "pgup":
		m.cursorY = max(0, m.cursorY-m.height/2)
	case "pgdown":
		m.cursorY = max(0, min(rows-1, m.cursorY+m.height/2))
	case "c":
		m.doCopyCell()
	case "y":
		m.doCopyRowJSON()
	case "Y":
		m.doCopyRowCSV()
	case "t":
		m.doCopyRowText()
	case "f":
		cmd = m.doFilterByValue()
	case "D":
		cmd = m.doGenerateDelete()
	case "e":
		cmd = m.exportJSONCmd()
	case "E":
		cmd = m.exportCSVCmd()
	}

	m.keepCursorVisible()

	if m.statusMessage != "" {
		status := m.statusMessage
		m.statusMessage = ""
		notify := func() tea.Msg { return StatusNotifyMsg{Message: status} }
		cmd = tea.Batch(cmd, notify)
	}

	return m, cmd
}

func (m *Model) visibleRows() int {
	return max(1, m.height-4)
}

func (m *Model) keepCursorVisible() {
	visible := m.visibleRows()
	if m.cursorY < m.scrollY {
		m.scrollY = m.cursorY
	}
	if m.cursorY >= m.scrollY+visible {
		m.scrollY = m.cursorY - visible + 1
	}
}

// View renders the results pane.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	if m.loading {
		return titleStyle.Render("Results") + "\n" + theme.StyleMuted.Render("  Executing query...")
	}

	if m.err != nil {
		return titleStyle.Render("Results") + "\n" +
			theme.StyleError.Render(fmt.Sprintf("  [%s] %s", m.errKind, m.err.Error()))
	}

	if m.result == nil {
		return titleStyle.Render("Results") + "\n" +
			theme.StyleMuted.Render("  Execute a query to see results")
	}

	if !m.result.ReturnsRows {
		stats := theme.StyleMuted.Render(m.result.Duration.Round(1000).String())
		return titleStyle.Render("Results") + "  " + stats + "\n" +
			theme.StyleSuccess.Render(fmt.Sprintf("  %d row(s) affected", m.result.Affected))
	}

	stats := fmt.Sprintf("%d row(s) | %s",
		len(m.result.Records),
		m.result.Duration.Round(1000).String(),
	)
	header := titleStyle.Render("Results") + "  " +
		theme.StyleMuted.Render(stats)

	if len(m.result.Columns) == 0 {
		return header + "\n" + theme.StyleMuted.Render("  No rows")
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")

	b.WriteString(m.renderRow(m.result.Columns, true, -1))
	b.WriteString("\n")
	b.WriteString(m.renderSeparator())
	b.WriteString("\n")

	visible := m.visibleRows()
	for i := m.scrollY; i < len(m.cells) && i < m.scrollY+visible; i++ {
		selected := -1
		if m.focused && i == m.cursorY {
			selected = m.cursorX
		}
		b.WriteString(m.renderRow(m.cells[i], false, selected))
		if i < m.scrollY+visible-1 && i < len(m.cells)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderRow draws one line; selected is the highlighted column or -1.
func (m Model) renderRow(cells []string, isHeader bool, selected int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		width := 10
		if i < len(m.colWidths) {
			width = m.colWidths[i]
		}
		display := fit(cell, max(width, 1))

		switch {
		case isHeader:
			parts[i] = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorPrimary).
				Render(display)
		case i == selected:
			parts[i] = lipgloss.NewStyle().
				Reverse(true).
				Foreground(theme.ColorHighlight).
				Render(display)
		case cell == "NULL":
			parts[i] = theme.StyleMuted.Render(display)
		default:
			parts[i] = display
		}
	}
	return "  " + strings.Join(parts, " │ ")
}

// fit truncates or pads s to exactly width display cells.
func fit(s string, width int) string {
	display := s
	if lipgloss.Width(display) > width {
		if width > 1 {
			runes := []rune(display)
			for len(runes) > 0 && lipgloss.Width(string(runes)) >= width {
				runes = runes[:len(runes)-1]
			}
			display = string(runes) + "…"
		} else {
			display = "…"
		}
	}
	if pad := width - lipgloss.Width(display); pad > 0 {
		display += strings.Repeat(" ", pad)
	}
	return display
}

func (m Model) renderSeparator() string {
	parts := make([]string, len(m.colWidths))
	for i, w := range m.colWidths {
		parts[i] = strings.Repeat("─", max(w, 1))
	}
	return "  " + lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Join(parts, "─┼─"))
}
