package ui

import (
	"charm.land/lipgloss/v2"
	catppuccin "github.com/catppuccin/go"
	"github.com/lucasb-eyer/go-colorful"
)

type Theme struct {
	Header       lipgloss.Style
	Status       lipgloss.Style
	PanelTitle   lipgloss.Style
	PanelBorder  lipgloss.Style
	PanelBody    lipgloss.Style
	Overlay      lipgloss.Style
	OverlayTitle lipgloss.Style
	Accent       lipgloss.Style
	Pass         lipgloss.Style
	Fail         lipgloss.Style
	Pending      lipgloss.Style
	Muted        lipgloss.Style
	Info         lipgloss.Style
	ImageFrame   lipgloss.Style
	// ScoreLow and ScoreHigh are the ends of the match bar gradient.
	ScoreLow  string
	ScoreHigh string
	// MasteryStart begins the landing screen's mastery gradient.
	MasteryStart string
}

var StyleVariants = []string{"modern_arcade", "cozy_clean", "retro_terminal", "catppuccin"}

// ThemeForVariant falls back to the default look for unknown names.
func ThemeForVariant(variant string) Theme {
	switch variant {
	case "cozy_clean":
		return cozyCleanTheme()
	case "retro_terminal":
		return retroTerminalTheme()
	case "catppuccin":
		return catppuccinTheme(catppuccin.Mocha)
	default:
		return modernArcadeTheme()
	}
}

// palette is the handful of colors a style variant is built from.
type palette struct {
	header, status, text string
	title, accent, info  string
	pass, fail, pending  string
	muted, border, frame string
	overlayBorder        lipgloss.Border
}

func fromPalette(p palette) Theme {
	fg := func(hex string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)) }
	return Theme{
		Header:      fg(p.text).Background(lipgloss.Color(p.header)).Padding(0, 1),
		Status:      fg(p.text).Background(lipgloss.Color(p.status)).Padding(0, 1),
		PanelTitle:  fg(p.title).Bold(true),
		PanelBorder: fg(p.border),
		PanelBody:   fg(p.text),
		Overlay: lipgloss.NewStyle().
			BorderStyle(p.overlayBorder).
			BorderForeground(lipgloss.Color(p.title)).
			Background(lipgloss.Color(p.header)).
			Foreground(lipgloss.Color(p.text)).
			Padding(1, 2),
		OverlayTitle: fg(p.title).Bold(true),
		Accent:       fg(p.accent).Bold(true),
		Pass:         fg(p.pass).Bold(true),
		Fail:         fg(p.fail).Bold(true),
		Pending:      fg(p.pending),
		Muted:        fg(p.muted),
		Info:         fg(p.info),
		ImageFrame:   fg(p.frame),
		ScoreLow:     p.fail,
		ScoreHigh:    p.pass,
		MasteryStart: p.info,
	}
}

// modernArcadeTheme is the indigo gallery look of the game's title screen.
func modernArcadeTheme() Theme {
	return fromPalette(palette{
		header: "#1E1B4B", status: "#312E81", text: "#EEF2FF",
		title: "#A5B4FC", accent: "#F472B6", info: "#818CF8",
		pass: "#34D399", fail: "#FB7185", pending: "#FBBF24",
		muted: "#A1A1C7", border: "#4F46E5", frame: "#6366F1",
		overlayBorder: lipgloss.RoundedBorder(),
	})
}

func cozyCleanTheme() Theme {
	return fromPalette(palette{
		header: "#2B2A33", status: "#3B3A46", text: "#FAF7F2",
		title: "#F5C07A", accent: "#9DB8F2", info: "#B7C9F5",
		pass: "#8CCFA9", fail: "#E3939C", pending: "#F5C07A",
		muted: "#B4AFA6", border: "#5A5766", frame: "#7A7688",
		overlayBorder: lipgloss.RoundedBorder(),
	})
}

// retroTerminalTheme mimics an amber phosphor screen.
func retroTerminalTheme() Theme {
	return fromPalette(palette{
		header: "#140C02", status: "#2A1A05", text: "#FFD9A0",
		title: "#FFB000", accent: "#FFCC66", info: "#FFB000",
		pass: "#FFE08A", fail: "#FF7A3D", pending: "#C98A1B",
		muted: "#B08850", border: "#5C3D0E", frame: "#7A5217",
		overlayBorder: lipgloss.DoubleBorder(),
	})
}

func catppuccinTheme(f catppuccin.Flavor) Theme {
	c := func(col catppuccin.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(col.Hex))
	}
	base := lipgloss.Color(f.Base().Hex)
	mantle := lipgloss.Color(f.Mantle().Hex)
	text := lipgloss.Color(f.Text().Hex)

	return Theme{
		Header:      lipgloss.NewStyle().Background(mantle).Foreground(text).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(lipgloss.Color(f.Surface0().Hex)).Foreground(text).Padding(0, 1),
		PanelTitle:  c(f.Mauve()).Bold(true),
		PanelBorder: c(f.Surface1()),
		PanelBody:   c(f.Text()),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(f.Mauve().Hex)).
			Background(base).
			Foreground(text).
			Padding(1, 2),
		OverlayTitle: c(f.Mauve()).Bold(true),
		Accent:       c(f.Blue()).Bold(true),
		Pass:         c(f.Green()).Bold(true),
		Fail:         c(f.Red()).Bold(true),
		Pending:      c(f.Yellow()),
		Muted:        c(f.Overlay0()),
		Info:         c(f.Sky()),
		ImageFrame:   c(f.Surface1()),
		ScoreLow:     f.Red().Hex,
		ScoreHigh:    f.Green().Hex,
		MasteryStart: f.Blue().Hex,
	}
}

// scoreColor blends the theme's bar colors for a 0..100 score.
func (t Theme) scoreColor(score int) string {
	lo, err1 := colorful.Hex(t.ScoreLow)
	hi, err2 := colorful.Hex(t.ScoreHigh)
	if err1 != nil || err2 != nil {
		return t.ScoreHigh
	}
	frac := float64(min(100, max(0, score))) / 100
	return lo.BlendHcl(hi, frac).Clamped().Hex()
}
