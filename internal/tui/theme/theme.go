package theme

import "github.com/charmbracelet/lipgloss"

// Palette is a named set of colors the TUI draws with.
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Border    lipgloss.Color
	Muted     lipgloss.Color
	Highlight lipgloss.Color
	BarBg     lipgloss.Color
	BarFg     lipgloss.Color
}

// Palettes available through the "theme" preference.
var Palettes = map[string]Palette{
	"default": {
		Primary:   "63",  // Purple
		Secondary: "241", // Gray
		Success:   "42",  // Green
		Error:     "196", // Red
		Warning:   "214", // Orange
		Border:    "238",
		Muted:     "245",
		Highlight: "229", // Yellow
		BarBg:     "236",
		BarFg:     "252",
	},
	"mono": {
		Primary:   "255",
		Secondary: "244",
		Success:   "250",
		Error:     "255",
		Warning:   "250",
		Border:    "240",
		Muted:     "244",
		Highlight: "231",
		BarBg:     "235",
		BarFg:     "250",
	},
}

// Colors of the active palette.
var (
	ColorPrimary   lipgloss.Color
	ColorSecondary lipgloss.Color
	ColorSuccess   lipgloss.Color
	ColorError     lipgloss.Color
	ColorWarning   lipgloss.Color
	ColorBorder    lipgloss.Color
	ColorMuted     lipgloss.Color
	ColorHighlight lipgloss.Color
)

// Shared styles used across TUI components.
var (
	StyleBorder       lipgloss.Style
	StyleActiveBorder lipgloss.Style
	StyleTitle        lipgloss.Style
	StyleMuted        lipgloss.Style
	StyleError        lipgloss.Style
	StyleWarning      lipgloss.Style
	StyleSuccess      lipgloss.Style
	StyleStatusBar    lipgloss.Style
)

func init() {
	Apply("default")
}

// Apply switches to the named palette. Unknown names keep the default one
// and report false.
func Apply(name string) bool {
	p, ok := Palettes[name]
	if !ok {
		p = Palettes["default"]
	}

	ColorPrimary = p.Primary
	ColorSecondary = p.Secondary
	ColorSuccess = p.Success
	ColorError = p.Error
	ColorWarning = p.Warning
	ColorBorder = p.Border
	ColorMuted = p.Muted
	ColorHighlight = p.Highlight

	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleActiveBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary)

	StyleTitle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleError = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)

	StyleStatusBar = lipgloss.NewStyle().
		Background(p.BarBg).
		Foreground(p.BarFg).
		Padding(0, 1)

	return ok
}
