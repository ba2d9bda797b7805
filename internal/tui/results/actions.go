package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/database"
)

// SetEditorQueryMsg asks the app to put generated SQL in the editor for review.
type SetEditorQueryMsg struct {
	Query string
}

// StatusNotifyMsg carries the outcome of an action to the status bar.
type StatusNotifyMsg struct {
	Message string
}

// clipboardWrite is swapped out in tests.
var clipboardWrite = clipboard.WriteAll

func (m Model) currentRecord() (database.Record, bool) {
	if m.result == nil || m.cursorY < 0 || m.cursorY >= len(m.result.Records) {
		return database.Record{}, false
	}
	return m.result.Records[m.cursorY], true
}

func (m Model) currentValue() (string, database.Value, bool) {
	rec, ok := m.currentRecord()
	if !ok || m.cursorX < 0 || m.cursorX >= len(m.result.Columns) {
		return "", database.Value{}, false
	}
	col := m.result.Columns[m.cursorX]
	v, ok := rec.Get(col)
	return col, v, ok
}

// --- Copy ---

func (m *Model) copyText(text, done string) {
	if err := clipboardWrite(text); err != nil {
		m.statusMessage = "Copy failed: " + err.Error()
		return
	}
	m.statusMessage = done
}

func (m *Model) doCopyCell() {
	_, v, ok := m.currentValue()
	if !ok {
		m.statusMessage = "Nothing to copy"
		return
	}
	val := v.String()
	m.copyText(val, "Copied: "+truncateStatus(val, 40))
}

func (m *Model) doCopyRowJSON() {
	rec, ok := m.currentRecord()
	if !ok {
		m.statusMessage = "No row to copy"
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		m.statusMessage = "Copy failed: " + err.Error()
		return
	}
	m.copyText(string(data), "Copied row as JSON")
}

func (m *Model) doCopyRowCSV() {
	if _, ok := m.currentRecord(); !ok {
		m.statusMessage = "No row to copy"
		return
	}
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(m.result.Columns)
	_ = w.Write(m.cells[m.cursorY])
	w.Flush()
	m.copyText(b.String(), "Copied row as CSV")
}

func (m *Model) doCopyRowText() {
	if _, ok := m.currentRecord(); !ok {
		m.statusMessage = "No row to copy"
		return
	}
	m.copyText(strings.Join(m.cells[m.cursorY], "\t"), "Copied row as text")
}

// --- Filter ---

func (m *Model) doFilterByValue() tea.Cmd {
	col, v, ok := m.currentValue()
	table := extractTableName(m.lastQuery)
	if !ok || table == "" {
		m.statusMessage = "Cannot filter: no cell selected"
		return nil
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s", table, condition(col, v))
	return func() tea.Msg {
		return SetEditorQueryMsg{Query: query}
	}
}

// --- Delete ---

func (m *Model) doGenerateDelete() tea.Cmd {
	rec, ok := m.currentRecord()
	table := extractTableName(m.lastQuery)
	if !ok || table == "" {
		m.statusMessage = "Cannot build DELETE: no row selected"
		return nil
	}

	var conditions []string
	for col, v := range rec.All() {
		conditions = append(conditions, condition(col, v))
	}

	// send to editor for review, never auto-execute deletes
	query := fmt.Sprintf("-- review before executing!\nDELETE FROM %s WHERE %s",
		table, strings.Join(conditions, " AND "))

	return func() tea.Msg {
		return SetEditorQueryMsg{Query: query}
	}
}

func condition(col string, v database.Value) string {
	ident := quoteIdent(col)
	if v.IsNull() {
		return ident + " IS NULL"
	}
	return fmt.Sprintf("%s = %s", ident, literal(v))
}

// literal renders v as SQL text both backends parse.
func literal(v database.Value) string {
	switch v.Kind() {
	case database.KindInteger, database.KindReal:
		return v.String()
	case database.KindBool:
		if b, _ := v.AsBool(); b {
			return "TRUE"
		}
		return "FALSE"
	}
	return "'" + strings.ReplaceAll(v.String(), "'", "''") + "'"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// --- Export ---

func (m Model) exportPath(ext string) (string, error) {
	name := fmt.Sprintf("dbdash_export_%s.%s", time.Now().Format("20060102_150405"), ext)
	if m.exportDir == "" {
		return name, nil
	}
	if err := os.MkdirAll(m.exportDir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(m.exportDir, name), nil
}

func (m Model) exportJSONCmd() tea.Cmd {
	result := m.result
	if result == nil || !result.ReturnsRows {
		return nil
	}
	return func() tea.Msg {
		path, err := m.exportPath("json")
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		if err := writeJSONExport(path, result); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(result.Records), path)}
	}
}

func (m Model) exportCSVCmd() tea.Cmd {
	result := m.result
	cells := m.cells
	if result == nil || !result.ReturnsRows {
		return nil
	}
	return func() tea.Msg {
		path, err := m.exportPath("csv")
		if err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		if err := writeCSVExport(path, result.Columns, cells); err != nil {
			return StatusNotifyMsg{Message: "Export failed: " + err.Error()}
		}
		return StatusNotifyMsg{Message: fmt.Sprintf("Exported %d rows to %s", len(result.Records), path)}
	}
}

func writeJSONExport(path string, result *app.Result) error {
	records := result.Records
	if records == nil {
		records = []database.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func writeCSVExport(path string, columns []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write(columns)
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()
	return w.Error()
}

// --- Helpers ---

// extractTableName finds the table a statement reads from or writes to.
func extractTableName(query string) string {
	tokens := strings.Fields(query)
	for i, tok := range tokens {
		switch strings.ToUpper(tok) {
		case "FROM", "INTO", "UPDATE":
			if i+1 < len(tokens) {
				if name := strings.TrimRight(tokens[i+1], ";,()"); name != "" {
					return name
				}
			}
		}
	}
	return ""
}

func truncateStatus(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
