package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/shell/app"
	"github.com/news2/shell/internal/shell/chart"
)

type palette struct {
	text    lipgloss.Color
	muted   lipgloss.Color
	accent  lipgloss.Color
	border  lipgloss.Color
	success lipgloss.Color
	danger  lipgloss.Color
	warning lipgloss.Color
}

var (
	lightPalette = palette{
		text:    "#1f2937",
		muted:   "#6b7280",
		accent:  chart.CrispColor,
		border:  "#d1d5db",
		success: "#10b981",
		danger:  "#ef4444",
		warning: "#f59e0b",
	}
	darkPalette = palette{
		text:    "#f9fafb",
		muted:   "#9ca3af",
		accent:  "#60a5fa",
		border:  "#374151",
		success: "#34d399",
		danger:  "#f87171",
		warning: "#fbbf24",
	}
)

type styles struct {
	p         palette
	title     lipgloss.Style
	tab       lipgloss.Style
	activeTab lipgloss.Style
	label     lipgloss.Style
	focused   lipgloss.Style
	muted     lipgloss.Style
	panel     lipgloss.Style
	errText   lipgloss.Style
	okText    lipgloss.Style
	crisp     lipgloss.Style
	fuzzy     lipgloss.Style
}

func newStyles(theme settings.Theme) styles {
	p := lightPalette
	if theme == settings.ThemeDark {
		p = darkPalette
	}
	return styles{
		p:         p,
		title:     lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		tab:       lipgloss.NewStyle().Foreground(p.muted).Padding(0, 1),
		activeTab: lipgloss.NewStyle().Foreground(p.accent).Bold(true).Underline(true).Padding(0, 1),
		label:     lipgloss.NewStyle().Foreground(p.text),
		focused:   lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(p.muted),
		panel:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 1),
		errText:   lipgloss.NewStyle().Foreground(p.danger),
		okText:    lipgloss.NewStyle().Foreground(p.success),
		crisp:     lipgloss.NewStyle().Foreground(lipgloss.Color(chart.CrispColor)),
		fuzzy:     lipgloss.NewStyle().Foreground(lipgloss.Color(chart.FuzzyColor)),
	}
}

func (s styles) risk(r vitals.RiskCategory) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(r.Color())).Bold(true)
}

func (s styles) status(st app.APIStatus) lipgloss.Style {
	switch st {
	case app.StatusOnline:
		return lipgloss.NewStyle().Foreground(s.p.success)
	case app.StatusOffline:
		return lipgloss.NewStyle().Foreground(s.p.danger)
	default:
		return lipgloss.NewStyle().Foreground(s.p.warning)
	}
}

func (s styles) toast(k app.ToastKind) lipgloss.Style {
	c := s.p.accent
	switch k {
	case app.ToastError:
		c = s.p.danger
	case app.ToastSuccess:
		c = s.p.success
	}
	return lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(c).Foreground(c).Padding(0, 1)
}
