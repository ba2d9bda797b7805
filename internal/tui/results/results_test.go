package results

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/database"
)

func record(pairs ...any) database.Record {
	rec := database.NewRecord(len(pairs) / 2)
	for i := 0; i < len(pairs); i += 2 {
		rec.Set(pairs[i].(string), pairs[i+1].(database.Value))
	}
	return rec
}

func usersResult() *app.Result {
	return &app.Result{
		Statement:   "SELECT id, email, note FROM users",
		ReturnsRows: true,
		Columns:     []string{"id", "email", "note"},
		Records: []database.Record{
			record("id", database.Int(1), "email", database.Str("a@example.com"), "note", database.Null(database.KindString)),
			record("id", database.Int(2), "email", database.Str("o'neil@example.com"), "note", database.Str("vip")),
		},
		Duration: 3 * time.Millisecond,
	}
}

func newResults(t *testing.T) Model {
	t.Helper()
	m := New()
	m.SetSize(100, 20)
	m.SetFocused(true)
	m.SetResult(usersResult())
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func stubClipboard(t *testing.T) *string {
	t.Helper()
	var got string
	prev := clipboardWrite
	clipboardWrite = func(s string) error {
		got = s
		return nil
	}
	t.Cleanup(func() { clipboardWrite = prev })
	return &got
}

func TestViewRendersRecords(t *testing.T) {
	m := newResults(t)
	view := m.View()
	require.Contains(t, view, "2 row(s)")
	require.Contains(t, view, "a@example.com")
	require.Contains(t, view, "NULL")
	require.Contains(t, view, "vip")
}

func TestViewEmptyResultShowsHeaders(t *testing.T) {
	m := New()
	m.SetSize(100, 20)
	m.SetResult(&app.Result{
		Statement:   "SELECT id, email FROM users WHERE id < 0",
		ReturnsRows: true,
		Columns:     []string{"id", "email"},
	})
	view := m.View()
	require.Contains(t, view, "0 row(s)")
	require.Contains(t, view, "email")
}

func TestViewExecResult(t *testing.T) {
	m := New()
	m.SetResult(&app.Result{Statement: "DELETE FROM users", Affected: 3})
	require.Contains(t, m.View(), "3 row(s) affected")
}

func TestViewErrorShowsKind(t *testing.T) {
	m := New()
	m.SetError(&app.ErrQuery{Query: "SELEC 1", Cause: errors.New("syntax error")})
	require.Contains(t, m.View(), "[query]")
	require.Nil(t, m.Result())
}

func TestCursorMovesWithinBounds(t *testing.T) {
	m := newResults(t)
	for range 5 {
		m, _ = m.Update(key("down"))
		m, _ = m.Update(key("right"))
	}
	require.Equal(t, 1, m.cursorY)
	require.Equal(t, 2, m.cursorX)
}

func TestCopyActions(t *testing.T) {
	got := stubClipboard(t)
	m := newResults(t)

	m, cmd := m.Update(key("right"))
	require.Nil(t, cmd)
	_, cmd = m.Update(key("c"))
	require.Equal(t, "a@example.com", *got)
	require.Equal(t, []tea.Msg{StatusNotifyMsg{Message: "Copied: a@example.com"}}, collect(cmd))

	_, _ = m.Update(key("y"))
	require.JSONEq(t, `{"id":1,"email":"a@example.com","note":null}`, *got)
	require.True(t, strings.HasPrefix(*got, `{"id"`))

	_, _ = m.Update(key("Y"))
	require.Equal(t, "id,email,note\n1,a@example.com,NULL\n", *got)

	_, _ = m.Update(key("t"))
	require.Equal(t, "1\ta@example.com\tNULL", *got)
}

func TestCopyWithoutResult(t *testing.T) {
	got := stubClipboard(t)
	m := New()
	m.SetFocused(true)
	_, cmd := m.Update(key("c"))
	require.Empty(t, *got)
	require.Equal(t, []tea.Msg{StatusNotifyMsg{Message: "Nothing to copy"}}, collect(cmd))
}

func TestFilterByValue(t *testing.T) {
	m := newResults(t)
	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("right"))

	_, cmd := m.Update(key("f"))
	require.Equal(t, []tea.Msg{SetEditorQueryMsg{
		Query: `SELECT * FROM users WHERE "email" = 'o''neil@example.com'`,
	}}, collect(cmd))
}

func TestGenerateDelete(t *testing.T) {
	m := newResults(t)
	_, cmd := m.Update(key("D"))
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	q := msgs[0].(SetEditorQueryMsg).Query
	require.True(t, strings.HasPrefix(q, "-- review before executing!\n"))
	require.Contains(t, q, `DELETE FROM users WHERE "id" = 1 AND "email" = 'a@example.com' AND "note" IS NULL`)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	m := newResults(t)
	m.SetExportDir(dir)

	_, cmd := m.Update(key("e"))
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].(StatusNotifyMsg).Message, "Exported 2 rows")

	_, cmd = m.Update(key("E"))
	msgs = collect(cmd)
	require.Len(t, msgs, 1)

	jsonFiles, err := filepath.Glob(filepath.Join(dir, "dbdash_export_*.json"))
	require.NoError(t, err)
	require.Len(t, jsonFiles, 1)
	data, err := os.ReadFile(jsonFiles[0])
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	require.Nil(t, rows[0]["note"])
	require.Equal(t, "vip", rows[1]["note"])

	csvFiles, err := filepath.Glob(filepath.Join(dir, "dbdash_export_*.csv"))
	require.NoError(t, err)
	require.Len(t, csvFiles, 1)
	data, err = os.ReadFile(csvFiles[0])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "id,email,note\n"))
}

func TestExportSkipsExecResult(t *testing.T) {
	m := New()
	m.SetFocused(true)
	m.SetResult(&app.Result{Statement: "DELETE FROM users", Affected: 1})
	_, cmd := m.Update(key("e"))
	require.Nil(t, cmd)
}

func TestExtractTableName(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM users WHERE id = 1":  "users",
		"select * from orders;":             "orders",
		"INSERT INTO logs (msg) VALUES (1)": "logs",
		"UPDATE items SET n = 2":            "items",
		"PRAGMA table_info(users)":          "",
		"":                                  "",
	}
	for q, want := range cases {
		require.Equal(t, want, extractTableName(q), q)
	}
}

func TestLiteral(t *testing.T) {
	require.Equal(t, "42", literal(database.Int(42)))
	require.Equal(t, "1.5", literal(database.Real(1.5)))
	require.Equal(t, "TRUE", literal(database.Bool(true)))
	require.Equal(t, "'it''s'", literal(database.Str("it's")))
	require.Equal(t, `"id" IS NULL`, condition("id", database.Null(database.KindInteger)))
}

func TestTruncateStatus(t *testing.T) {
	require.Equal(t, "short", truncateStatus("short", 10))
	require.Equal(t, "abcdefg...", truncateStatus("abcdefghijklmnop", 10))
}
