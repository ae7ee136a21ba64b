package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the palette of the interactive view.
type Theme struct {
	Name    string
	Field   lipgloss.Color
	Title   lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
	Running lipgloss.Color
	Paused  lipgloss.Color
	Record  lipgloss.Color
	Value   lipgloss.Color
}

var (
	ThemeAurora = Theme{
		Name:    "aurora",
		Field:   lipgloss.Color("86"),
		Title:   lipgloss.Color("86"),
		Text:    lipgloss.Color("255"),
		Muted:   lipgloss.Color("242"),
		Border:  lipgloss.Color("238"),
		Running: lipgloss.Color("82"),
		Paused:  lipgloss.Color("220"),
		Record:  lipgloss.Color("196"),
		Value:   lipgloss.Color("213"),
	}

	ThemeRetro = Theme{
		Name:    "retro",
		Field:   lipgloss.Color("#00ff00"),
		Title:   lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#007700"),
		Border:  lipgloss.Color("#005500"),
		Running: lipgloss.Color("#88ff88"),
		Paused:  lipgloss.Color("#ffff00"),
		Record:  lipgloss.Color("#ff0000"),
		Value:   lipgloss.Color("#ccffcc"),
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Field:   lipgloss.Color("#ffffff"),
		Title:   lipgloss.Color("#ffffff"),
		Text:    lipgloss.Color("#cccccc"),
		Muted:   lipgloss.Color("#888888"),
		Border:  lipgloss.Color("#444444"),
		Running: lipgloss.Color("#ffffff"),
		Paused:  lipgloss.Color("#888888"),
		Record:  lipgloss.Color("#ff0000"),
		Value:   lipgloss.Color("#0088ff"),
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Field:   lipgloss.Color("#00a8cc"),
		Title:   lipgloss.Color("#0077be"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Border:  lipgloss.Color("#224466"),
		Running: lipgloss.Color("#00ff88"),
		Paused:  lipgloss.Color("#ffcc00"),
		Record:  lipgloss.Color("#ff4444"),
		Value:   lipgloss.Color("#ffd700"),
	}

	ThemeSunset = Theme{
		Name:    "sunset",
		Field:   lipgloss.Color("#feca57"),
		Title:   lipgloss.Color("#ff6b6b"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Border:  lipgloss.Color("#5a3b5c"),
		Running: lipgloss.Color("#5fd068"),
		Paused:  lipgloss.Color("#ffc048"),
		Record:  lipgloss.Color("#ff4757"),
		Value:   lipgloss.Color("#ff9ff3"),
	}

	Themes = []Theme{ThemeAurora, ThemeRetro, ThemeMinimal, ThemeOcean, ThemeSunset}
)

// GetTheme returns the named theme, or aurora when the name is unknown.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeAurora
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

type styles struct {
	field, title, text, muted, dimmer lipgloss.Style
	running, paused, record, value    lipgloss.Style
	panel                             lipgloss.Style
}

func (t Theme) styles() styles {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	return styles{
		field:   fg(t.Field),
		title:   fg(t.Title).Bold(true),
		text:    fg(t.Text),
		muted:   fg(t.Muted),
		dimmer:  fg(t.Border),
		running: fg(t.Running),
		paused:  fg(t.Paused),
		record:  fg(t.Record),
		value:   fg(t.Value),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
	}
}
