package editor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func focused() Model {
	m := New()
	m.SetSize(60, 10)
	m.SetFocused(true)
	return m
}

func TestExecuteRemembersHistory(t *testing.T) {
	m := focused()
	m.SetQuery("select 1")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.NotNil(t, cmd)
	require.Equal(t, ExecuteQueryMsg{Query: "select 1"}, cmd())

	m.SetQuery("select 2")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	// repeated statements are kept once
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.Equal(t, []string{"select 1", "select 2"}, m.History())

	m.SetQuery("draft")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	require.Equal(t, "select 2", m.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	require.Equal(t, "select 1", m.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	require.Equal(t, "select 1", m.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, "select 2", m.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, "draft", m.Value())
}

func TestExecuteIgnoresBlank(t *testing.T) {
	m := focused()
	m.SetQuery("   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	require.Nil(t, cmd)
}

func TestFormatKeywords(t *testing.T) {
	m := focused()
	m.SetQuery("select name from users where note = 'select from'")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.Equal(t, "SELECT name FROM users WHERE note = 'select from'", m.Value())
}

func TestTableCompletion(t *testing.T) {
	m := focused()
	m.SetTableNames([]string{"orders", "order_items", "users"})
	m.SetQuery("SELECT * FROM ord")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, m.CompletionActive())
	require.Equal(t, "SELECT * FROM orders", m.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "SELECT * FROM order_items", m.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.CompletionActive())
}

func TestCompletionNeedsTableContext(t *testing.T) {
	m := focused()
	m.SetTableNames([]string{"users"})
	m.SetQuery("us")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.False(t, m.CompletionActive())
}

func TestFormatKeywordsSkipsComments(t *testing.T) {
	in := "-- select from here\nselect \"from\" from t1 where x = 'and'"
	want := "-- select from here\nSELECT \"from\" FROM t1 WHERE x = 'and'"
	require.Equal(t, want, FormatKeywords(in))
	require.Equal(t, "SELECT 'unterminated", FormatKeywords("select 'unterminated"))
}

func TestExpectsTable(t *testing.T) {
	cases := map[string]bool{
		"SELECT * FROM us":                true,
		"select * from a join or":         true,
		"SELECT * FROM a, b, c":           true,
		"INSERT INTO lo":                  true,
		"SELECT na":                       false,
		"SELECT * FROM users WHERE na":    false,
		"us":                              false,
		"SELECT * FROM users u, orders o": false,
	}
	for s, want := range cases {
		require.Equal(t, want, expectsTable(s), s)
	}
}
