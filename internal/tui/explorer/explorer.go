package explorer

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/database"
	"github.com/joacominatel/dbdash/internal/tui/theme"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeDatabase NodeKind = iota
	NodeTable
	NodeColumn
)

// TreeNode represents a single node in the schema tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Children []*TreeNode
	Expanded bool
	Loaded   bool // whether children have been fetched

	// Column metadata
	Table      string
	DataType   string
	PrimaryKey bool
	NotNull    bool
}

// flatItem is a visible item in the flattened tree view.
type flatItem struct {
	node  *TreeNode
	depth int
}

// QuickQueryMsg asks the app to run a generated statement for the selected table.
type QuickQueryMsg struct {
	Query string
}

// requestColumnsMsg is sent when a table is expanded and needs column data.
type requestColumnsMsg struct {
	Table string
}

// IsRequestColumnsMsg reports whether msg asks for a table's columns.
func IsRequestColumnsMsg(msg tea.Msg) (table string, ok bool) {
	if m, ok := msg.(requestColumnsMsg); ok {
		return m.Table, true
	}
	return "", false
}

// Model is the explorer (schema tree) component.
type Model struct {
	tree    *TreeNode
	backend database.Backend
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
}

// New creates a new explorer model.
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

// Focused returns whether the explorer has focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetTree populates the explorer from a schema tree.
func (m *Model) SetTree(schema *app.SchemaTree) {
	root := &TreeNode{
		Kind:     NodeDatabase,
		Name:     schema.Database,
		Expanded: true,
		Loaded:   true,
	}
	for _, t := range schema.Tables {
		root.Children = append(root.Children, &TreeNode{Kind: NodeTable, Name: t})
	}

	m.tree = root
	m.backend = schema.Backend
	m.cursor = 0
	m.flatten()
	m.loading = false
}

// SetColumns adds column nodes to a table node.
func (m *Model) SetColumns(table string, columns []database.Column) {
	node := m.findTable(table)
	if node == nil {
		return
	}
	node.Children = nil
	for _, col := range columns {
		node.Children = append(node.Children, &TreeNode{
			Kind:       NodeColumn,
			Name:       col.Name,
			Table:      table,
			DataType:   col.DataType,
			PrimaryKey: col.PrimaryKey,
			NotNull:    col.NotNull,
		})
	}
	node.Loaded = true
	m.flatten()
}

// MarkFailed lets a table be expanded again after its columns failed to load.
func (m *Model) MarkFailed(table string) {
	if node := m.findTable(table); node != nil {
		node.Expanded = false
		node.Loaded = false
		m.flatten()
	}
}

func (m *Model) findTable(table string) *TreeNode {
	if m.tree == nil {
		return nil
	}
	for _, t := range m.tree.Children {
		if t.Name == table {
			return t
		}
	}
	return nil
}

// SelectedTable returns the table under the cursor, or the table of the
// column under the cursor.
func (m Model) SelectedTable() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", false
	}
	node := m.items[m.cursor].node
	switch node.Kind {
	case NodeTable:
		return node.Name, true
	case NodeColumn:
		return node.Table, true
	}
	return "", false
}

// flatten rebuilds the flat item list from the tree.
func (m *Model) flatten() {
	m.items = nil
	if m.tree != nil {
		m.flattenNode(m.tree, 0)
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

func (m *Model) flattenNode(node *TreeNode, depth int) {
	m.items = append(m.items, flatItem{node: node, depth: depth})
	if node.Expanded {
		for _, child := range node.Children {
			m.flattenNode(child, depth+1)
		}
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the explorer.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter", "right", "l":
			return m, m.toggleExpand()
		case "left", "h":
			return m, m.collapse()
		case "s":
			return m, m.quickQuery("SELECT * FROM %s LIMIT 100")
		case "d":
			return m, m.quickQuery("SELECT COUNT(*) AS count FROM %s")
		}
	}

	return m, nil
}

func (m *Model) quickQuery(format string) tea.Cmd {
	table, ok := m.SelectedTable()
	if !ok {
		return nil
	}
	query := fmt.Sprintf(format, QuoteIdent(table))
	return func() tea.Msg {
		return QuickQueryMsg{Query: query}
	}
}

func (m *Model) toggleExpand() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	node := m.items[m.cursor].node

	// Columns have no children
	if node.Kind == NodeColumn {
		return nil
	}

	if node.Expanded {
		node.Expanded = false
		m.flatten()
		return nil
	}

	node.Expanded = true
	m.flatten()

	if node.Kind == NodeTable && !node.Loaded {
		table := node.Name
		return func() tea.Msg {
			return requestColumnsMsg{Table: table}
		}
	}

	return nil
}

func (m *Model) collapse() tea.Cmd {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	node := m.items[m.cursor].node

	if node.Expanded {
		node.Expanded = false
		m.flatten()
		return nil
	}

	// Collapsing a column moves to its table.
	if node.Kind == NodeColumn {
		for i := m.cursor - 1; i >= 0; i-- {
			if m.items[i].node.Kind == NodeTable && m.items[i].node.Name == node.Table {
				m.cursor = i
				break
			}
		}
	}
	return nil
}

// QuoteIdent double-quotes an identifier, which both backends accept.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// View renders the explorer.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(theme.ColorPrimary).
		Bold(true).
		Padding(0, 1)

	title := titleStyle.Render("Schema Explorer")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}

	if m.tree == nil {
		return title + "\n" + theme.StyleMuted.Render("  No connection")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")

	visibleHeight := m.height - 2 // title + padding
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	// Scroll offset to keep cursor visible
	scrollOffset := 0
	if m.cursor >= visibleHeight {
		scrollOffset = m.cursor - visibleHeight + 1
	}

	for i := scrollOffset; i < len(m.items) && i < scrollOffset+visibleHeight; i++ {
		item := m.items[i]
		line := m.renderNode(item, i == m.cursor)
		b.WriteString(line)
		if i < scrollOffset+visibleHeight-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	var icon string
	switch node.Kind {
	case NodeDatabase, NodeTable:
		if node.Expanded {
			icon = "▼ "
		} else {
			icon = "▶ "
		}
	case NodeColumn:
		icon = "  "
		if node.PrimaryKey {
			icon = "⚷ "
		}
	}

	name := node.Name
	switch node.Kind {
	case NodeDatabase:
		if m.backend != "" {
			name += " " + theme.StyleMuted.Render("("+string(m.backend)+")")
		}
	case NodeColumn:
		typ := node.DataType
		if node.NotNull {
			typ += " not null"
		}
		if typ != "" {
			name = fmt.Sprintf("%s %s", node.Name, theme.StyleMuted.Render(typ))
		}
	}

	line := indent + icon + name

	if m.width > 4 && lipgloss.Width(line) > m.width-2 {
		runes := []rune(line)
		for len(runes) > 0 && lipgloss.Width(string(runes)) > m.width-4 {
			runes = runes[:len(runes)-1]
		}
		line = string(runes) + ".."
	}

	if selected {
		return lipgloss.NewStyle().
			Foreground(theme.ColorHighlight).
			Bold(true).
			Render(line)
	}

	return line
}
