package users

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/dbdash/internal/auth"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func listed() Model {
	m := New()
	m.SetSize(80, 20)
	m.SetUsers([]auth.User{
		{ID: 1, Email: "admin@example.com", Role: auth.RoleAdmin},
		{ID: 2, Email: "viewer@example.com", Role: auth.RoleViewer},
		{ID: 3, Email: "none@example.com"},
	})
	return m
}

func TestViewListsUsers(t *testing.T) {
	m := listed()
	view := m.View()
	require.Contains(t, view, "Users (3)")
	require.Contains(t, view, "viewer@example.com")
	require.Contains(t, view, "-")

	m.SetError(errors.New("no such table: users"))
	require.Contains(t, m.View(), "no such table")
}

func TestRoleCycle(t *testing.T) {
	m := listed()

	_, cmd := m.Update(key("r"))
	require.Equal(t, SetRoleMsg{ID: 1, Role: ""}, cmd())

	m, _ = m.Update(key("j"))
	_, cmd = m.Update(key("r"))
	require.Equal(t, SetRoleMsg{ID: 2, Role: auth.RoleAdmin}, cmd())

	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	_, cmd = m.Update(key("r"))
	require.Equal(t, SetRoleMsg{ID: 3, Role: auth.RoleViewer}, cmd())
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m := listed()
	m, _ = m.Update(key("j"))

	m, cmd := m.Update(key("x"))
	require.Nil(t, cmd)
	require.Contains(t, m.View(), "Delete user 2?")

	m, cmd = m.Update(key("n"))
	require.Nil(t, cmd)
	require.NotContains(t, m.View(), "Delete user")

	m, _ = m.Update(key("x"))
	_, cmd = m.Update(key("y"))
	require.Equal(t, DeleteMsg{ID: 2}, cmd())
}

func TestSetUsersClampsCursor(t *testing.T) {
	m := listed()
	m, _ = m.Update(key("j"))
	m, _ = m.Update(key("j"))
	m.SetUsers([]auth.User{{ID: 1, Email: "a@example.com"}})
	u, ok := m.Selected()
	require.True(t, ok)
	require.Equal(t, int64(1), u.ID)

	m.SetUsers(nil)
	_, ok = m.Selected()
	require.False(t, ok)
	_, cmd := m.Update(key("r"))
	require.Nil(t, cmd)
}
