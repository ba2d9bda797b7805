// Package users is the account screen: the users table of the connected
// database with role changes and deletion.
package users

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/dbdash/internal/auth"
	"github.com/joacominatel/dbdash/internal/tui/theme"
)

// SetRoleMsg asks the app to store a new role for a user.
type SetRoleMsg struct {
	ID   int64
	Role string
}

// DeleteMsg asks the app to remove a user.
type DeleteMsg struct {
	ID int64
}

// ReloadMsg asks the app to read the users table again.
type ReloadMsg struct{}

// roleCycle is the order r steps through. The empty role means none.
var roleCycle = []string{auth.RoleViewer, auth.RoleAdmin, ""}

// Model lists users and turns key presses into store requests.
type Model struct {
	users   []auth.User
	cursor  int
	loading bool
	err     error

	// pendingDelete is the id waiting for confirmation, or 0.
	pendingDelete int64

	width  int
	height int
}

// New creates an empty users screen.
func New() Model {
	return Model{}
}

// SetSize updates the screen dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetLoading shows the loading line until users or an error arrive.
func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetUsers replaces the list, keeping the cursor in range.
func (m *Model) SetUsers(users []auth.User) {
	m.users = users
	m.err = nil
	m.loading = false
	m.pendingDelete = 0
	m.cursor = min(m.cursor, max(len(users)-1, 0))
}

// SetError shows err in place of the list.
func (m *Model) SetError(err error) {
	m.err = err
	m.loading = false
	m.pendingDelete = 0
}

// Users returns the displayed accounts.
func (m Model) Users() []auth.User {
	return m.users
}

// Selected returns the user under the cursor.
func (m Model) Selected() (auth.User, bool) {
	if m.cursor < 0 || m.cursor >= len(m.users) {
		return auth.User{}, false
	}
	return m.users[m.cursor], true
}

// Update handles key presses.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.pendingDelete != 0 {
		id := m.pendingDelete
		m.pendingDelete = 0
		if key.String() == "y" {
			return m, func() tea.Msg { return DeleteMsg{ID: id} }
		}
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.users)-1 {
			m.cursor++
		}
	case "r":
		if u, ok := m.Selected(); ok {
			role := nextRole(u.Role)
			return m, func() tea.Msg { return SetRoleMsg{ID: u.ID, Role: role} }
		}
	case "x", "delete":
		if u, ok := m.Selected(); ok {
			m.pendingDelete = u.ID
		}
	case "R":
		return m, func() tea.Msg { return ReloadMsg{} }
	}
	return m, nil
}

func nextRole(role string) string {
	for i, r := range roleCycle {
		if r == role {
			return roleCycle[(i+1)%len(roleCycle)]
		}
	}
	return roleCycle[0]
}

// View renders the users table.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.StyleTitle.Render(fmt.Sprintf("Users (%d)", len(m.users))))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(theme.StyleMuted.Render("  Loading users..."))
	case m.err != nil:
		b.WriteString(theme.StyleError.Render("  " + m.err.Error()))
	case len(m.users) == 0:
		b.WriteString(theme.StyleMuted.Render("  No users. Create one with dbdash --add-user <email>."))
	default:
		emailWidth := len("email")
		for _, u := range m.users {
			emailWidth = max(emailWidth, lipgloss.Width(u.Email))
		}
		header := fmt.Sprintf("  %-6s %-*s  %s", "id", emailWidth, "email", "role")
		b.WriteString(theme.StyleMuted.Render(header))
		b.WriteString("\n")

		for i, u := range m.users {
			role := u.Role
			if role == "" {
				role = "-"
			}
			line := fmt.Sprintf("%-6d %-*s  %s", u.ID, emailWidth, u.Email, role)
			if i == m.cursor {
				b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorPrimary).Bold(true).Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.pendingDelete != 0 {
		b.WriteString(theme.StyleWarning.Render(fmt.Sprintf("  Delete user %d? y to confirm, any other key to cancel", m.pendingDelete)))
	} else {
		b.WriteString(theme.StyleMuted.Render("  j/k: Move | r: Cycle role | x: Delete | R: Reload | Esc: Back"))
	}
	return b.String()
}
