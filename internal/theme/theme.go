// Package theme holds the colors and styles of the terminal UI. Styles
// are package variables rebuilt by Apply, so views must read them at
// render time.
package theme

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

// DefaultName is the palette used when display.theme is empty.
const DefaultName = "default"

// Palette is a named set of adaptive colors (dark terminal value, light
// terminal value).
type Palette struct {
	Accent  lipgloss.TerminalColor
	OK      lipgloss.TerminalColor
	Warn    lipgloss.TerminalColor
	Danger  lipgloss.TerminalColor
	Special lipgloss.TerminalColor
	Muted   lipgloss.TerminalColor
	Text    lipgloss.TerminalColor
	Subtle  lipgloss.TerminalColor
	Border  lipgloss.TerminalColor
}

var palettes = map[string]Palette{
	DefaultName: {
		Accent:  lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"},
		OK:      lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"},
		Warn:    lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"},
		Danger:  lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"},
		Special: lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"},
		Muted:   lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"},
		Text:    lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"},
		Subtle:  lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"},
		Border:  lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"},
	},
	"solarized": {
		Accent:  lipgloss.Color("#268BD2"),
		OK:      lipgloss.Color("#859900"),
		Warn:    lipgloss.Color("#B58900"),
		Danger:  lipgloss.Color("#DC322F"),
		Special: lipgloss.Color("#6C71C4"),
		Muted:   lipgloss.Color("#93A1A1"),
		Text:    lipgloss.AdaptiveColor{Dark: "#FDF6E3", Light: "#002B36"},
		Subtle:  lipgloss.AdaptiveColor{Dark: "#073642", Light: "#EEE8D5"},
		Border:  lipgloss.Color("#586E75"),
	},
	"mono": {
		Accent:  lipgloss.NoColor{},
		OK:      lipgloss.NoColor{},
		Warn:    lipgloss.NoColor{},
		Danger:  lipgloss.NoColor{},
		Special: lipgloss.NoColor{},
		Muted:   lipgloss.NoColor{},
		Text:    lipgloss.NoColor{},
		Subtle:  lipgloss.NoColor{},
		Border:  lipgloss.NoColor{},
	},
}

// Colors of the active palette.
var (
	ColorBlue    lipgloss.TerminalColor
	ColorGreen   lipgloss.TerminalColor
	ColorYellow  lipgloss.TerminalColor
	ColorRed     lipgloss.TerminalColor
	ColorMagenta lipgloss.TerminalColor
	ColorGray    lipgloss.TerminalColor
	ColorWhite   lipgloss.TerminalColor
	ColorSubtle  lipgloss.TerminalColor
	ColorBorder  lipgloss.TerminalColor
)

var (
	// HeaderStyle is used for the application title bar.
	HeaderStyle lipgloss.Style
	// StatusBarStyle is used for the bottom status bar.
	StatusBarStyle lipgloss.Style
	// ErrorBarStyle replaces StatusBarStyle while the server is unreachable.
	ErrorBarStyle lipgloss.Style
	TabStyle      lipgloss.Style
	// ActiveTabStyle renders the selected mailbox tab.
	ActiveTabStyle   lipgloss.Style
	DetailPanelStyle lipgloss.Style
	ListItemStyle    lipgloss.Style
	// SelectedItemStyle highlights the currently focused list item.
	SelectedItemStyle lipgloss.Style
	// DimmedStyle is used for secondary text such as previews.
	DimmedStyle lipgloss.Style
	HelpStyle   lipgloss.Style
)

var active = DefaultName

func init() {
	use(palettes[DefaultName])
}

// Names returns the available palette names, sorted.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Active returns the name of the palette in use.
func Active() string {
	return active
}

// Apply switches to the named palette. An empty name selects the default;
// an unknown name is an error and leaves the styles unchanged.
func Apply(name string) error {
	if name == "" {
		name = DefaultName
	}
	p, ok := palettes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q", name)
	}
	use(p)
	active = name
	return nil
}

func use(p Palette) {
	ColorBlue = p.Accent
	ColorGreen = p.OK
	ColorYellow = p.Warn
	ColorRed = p.Danger
	ColorMagenta = p.Special
	ColorGray = p.Muted
	ColorWhite = p.Text
	ColorSubtle = p.Subtle
	ColorBorder = p.Border

	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Text).
		Background(p.Accent).
		Padding(0, 1)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Subtle).
		Padding(0, 1)

	ErrorBarStyle = StatusBarStyle.
		Background(p.Danger).
		Bold(true)

	TabStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent).
		Underline(true).
		Padding(0, 1)

	DetailPanelStyle = lipgloss.NewStyle().
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border)

	ListItemStyle = lipgloss.NewStyle().
		PaddingLeft(2)

	SelectedItemStyle = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(p.Accent).
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(p.Accent)

	DimmedStyle = lipgloss.NewStyle().
		Foreground(p.Muted)

	HelpStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)
}

// MailboxStyle returns a color-coded badge style for a mailbox.
func MailboxStyle(id mailbox.ID) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch id {
	case mailbox.Inbox:
		return base.Foreground(ColorBlue)
	case mailbox.Spam:
		return base.Foreground(ColorYellow)
	case mailbox.Failed:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorMagenta).Italic(true)
	}
}

// OutcomeStyle returns the style used to report an action outcome.
func OutcomeStyle(o mail.Outcome) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch o {
	case mail.Applied:
		return base.Foreground(ColorGreen)
	case mail.NotFound, mail.Skipped:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorRed).Underline(true)
	}
}
