package statusbar

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestView(t *testing.T) {
	m := New()
	m.SetWidth(160)
	require.Contains(t, m.View(), "disconnected")
	require.Contains(t, m.View(), "Ctrl+S: API")

	m.SetConnected(true, "app.db (sqlite)")
	m.SetServer(true, "127.0.0.1:7070")
	view := m.View()
	require.Contains(t, view, "app.db (sqlite)")
	require.Contains(t, view, "api 127.0.0.1:7070")

	m.SetError("query", "Statement failed")
	require.Contains(t, m.View(), "[query] Statement failed")

	m.SetMessage("done")
	view = m.View()
	require.Contains(t, view, "done")
	require.NotContains(t, view, "[query]")
}
