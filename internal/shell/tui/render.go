package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/news2/shell/internal/shell/app"
	"github.com/news2/shell/internal/shell/history"
	"github.com/news2/shell/internal/shell/view"
)

const (
	appTitle      = "NEWS-2 Assessment"
	chartBarWidth = 30
)

func newResultsTable() table.Model {
	return table.New(
		table.WithColumns([]table.Column{
			{Title: "Date/Time", Width: 17},
			{Title: "Crisp", Width: 6},
			{Title: "Fuzzy", Width: 6},
			{Title: "Risk", Width: 11},
			{Title: "Response", Width: 50},
		}),
		table.WithHeight(8),
		table.WithFocused(true),
	)
}

func resultRows(r *history.Render) []table.Row {
	rows := make([]table.Row, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, table.Row{
			row.Time,
			strconv.Itoa(row.CrispScore),
			row.FuzzyScore,
			string(row.Risk),
			row.Response,
		})
	}
	return rows
}

func (m *Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch m.app.View() {
	case view.Dashboard:
		b.WriteString(m.dashboardView())
	case view.Assessment:
		b.WriteString(m.assessmentView())
	case view.History:
		b.WriteString(m.historyView())
	case view.Settings:
		b.WriteString(m.settingsView())
	}

	if toasts := m.app.Toasts(); len(toasts) > 0 {
		b.WriteString("\n")
		for _, t := range toasts {
			b.WriteString(s.toast(t.Kind).Render(t.Kind.Title()+": "+t.Message) + "\n")
		}
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func (m *Model) header() string {
	s := m.styles
	tabs := make([]string, 0, len(view.All))
	for i, v := range view.All {
		label := fmt.Sprintf("F%d %s", i+1, v.Title())
		if v == m.app.View() {
			tabs = append(tabs, s.activeTab.Render(label))
		} else {
			tabs = append(tabs, s.tab.Render(label))
		}
	}
	st := m.app.Status()
	status := s.status(st).Render("● " + st.Text())
	return lipgloss.JoinHorizontal(lipgloss.Top,
		s.title.Render(appTitle), "  ",
		strings.Join(tabs, ""), "  ",
		status,
	)
}

func (m *Model) dashboardView() string {
	s := m.styles

	quick := s.title.Render("Quick Assessment") + "\n" + m.quick.View(s)
	if m.app.QuickSubmitting() {
		quick += m.spinner.View() + " Calculating..."
	}

	var recent strings.Builder
	recent.WriteString(s.title.Render("Recent Patients") + "\n")
	patients := m.app.RecentPatients()
	if len(patients) == 0 {
		recent.WriteString(s.muted.Render("No recent patients"))
	}
	for i, id := range patients {
		if i == m.recentIdx {
			recent.WriteString(s.focused.Render("▸ "+id) + "\n")
		} else {
			recent.WriteString("  " + id + "\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		s.panel.Render(quick), " ",
		lipgloss.JoinVertical(lipgloss.Left, s.panel.Render(recent.String()), s.panel.Render(m.apiInfoView())),
	)
}

func (m *Model) apiInfoView() string {
	s := m.styles
	title := s.title.Render("API Information") + "\n"
	info := m.app.APIInfo()
	switch {
	case info != nil:
		return title + fmt.Sprintf("Status:     %s\nVersion:    %s\nLast Check: %s",
			info.Status, info.Version, info.LastCheck.Format("15:04:05"))
	case m.app.Status() == app.StatusOffline:
		return title + s.errText.Render("Failed to connect to the API. Please check your connection settings.") +
			"\n" + s.muted.Render("Press ctrl+r to retry connection")
	default:
		return title + s.muted.Render(m.app.Status().Text())
	}
}

func (m *Model) assessmentView() string {
	s := m.styles
	form := s.title.Render("Patient Vital Signs") + "\n" + m.form.View(s)
	if m.app.Submitting() {
		form += m.spinner.View() + " Calculating..."
	}

	res := m.app.Assessment()
	if res == nil {
		return s.panel.Render(form)
	}

	var b strings.Builder
	b.WriteString(s.title.Render("Assessment Result") + "\n")
	fmt.Fprintf(&b, "Crisp NEWS-2 Score: %d\n", res.Result.CrispScore)
	fmt.Fprintf(&b, "Fuzzy NEWS-2 Score: %.1f\n", res.Result.FuzzyScore)
	b.WriteString("Risk Category:      " + s.risk(res.Result.RiskCategory).Render(string(res.Result.RiskCategory)) + "\n")
	b.WriteString("Recommended:        " + res.Result.RecommendedResponse + "\n\n")
	fmt.Fprintf(&b, "%-22s %-16s %s\n", "Parameter", "Value", "Score")
	for _, row := range res.Parameters {
		value := row.Value
		if row.Unit != "" {
			value += " " + row.Unit
		}
		fmt.Fprintf(&b, "%-22s %-16s %d\n", row.Name, value, row.Score)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, s.panel.Render(form), " ", s.panel.Render(b.String()))
}

func (m *Model) historyView() string {
	s := m.styles
	st := m.app.History()

	var b strings.Builder
	b.WriteString(s.title.Render("Patient History") + "\n")
	b.WriteString("Patient ID: " + m.search.View() + "\n\n")

	switch {
	case st.Loading:
		b.WriteString(m.spinner.View() + " Loading patient data...")
		return b.String()
	case st.Failed && st.Render == nil:
		b.WriteString(s.errText.Render("Error loading patient data"))
		return b.String()
	case st.Render == nil:
		b.WriteString(s.muted.Render("Enter a patient ID and press enter to view history"))
		return b.String()
	case st.Render.Empty:
		b.WriteString(s.muted.Render("No history found for this patient"))
		return b.String()
	}

	r := st.Render
	if st.Failed {
		b.WriteString(s.errText.Render("Error loading patient data; showing "+r.PatientID) + "\n")
	}
	stats := fmt.Sprintf("Average Score: %s   Max Score: %s   Trend: %s   Assessments: %s",
		r.Stats.Average, r.Stats.Max, r.Stats.Trend, r.Stats.Assessments)
	b.WriteString(s.panel.Render(stats) + "\n")
	b.WriteString(s.panel.Render(textChart(r.Chart, s)) + "\n")
	b.WriteString(m.results.View() + "\n")
	b.WriteString(s.muted.Render("ctrl+e exports the history workbook and trend chart"))
	return b.String()
}

// textChart draws the trend as paired horizontal bars, oldest first.
func textChart(c history.ChartSpec, s styles) string {
	if len(c.Times) == 0 || c.YMax <= c.YMin {
		return ""
	}
	scale := func(v float64) int {
		n := int((v - c.YMin) / (c.YMax - c.YMin) * chartBarWidth)
		return max(0, min(n, chartBarWidth))
	}

	var b strings.Builder
	b.WriteString(s.crisp.Render("█ Crisp NEWS-2") + "  " + s.fuzzy.Render("▒ Fuzzy NEWS-2") + "\n")
	for i := range c.Times {
		crisp := strings.Repeat("█", scale(c.Crisp[i]))
		fuzzy := strings.Repeat("▒", scale(c.Fuzzy[i]))
		fmt.Fprintf(&b, "%-12s %s %g\n", c.Labels[i], s.crisp.Render(fmt.Sprintf("%-*s", chartBarWidth, crisp)), c.Crisp[i])
		fmt.Fprintf(&b, "%-12s %s %.1f\n", "", s.fuzzy.Render(fmt.Sprintf("%-*s", chartBarWidth, fuzzy)), c.Fuzzy[i])
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) settingsView() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.title.Render("Settings") + "\n")

	label := s.label
	if m.settingsPane == focusEndpoint {
		label = s.focused
	}
	b.WriteString(label.Render("API URL: ") + m.endpoint.View() + "\n")

	label = s.label
	if m.settingsPane == focusTheme {
		label = s.focused
	}
	b.WriteString(label.Render("Theme:   ") + "◂ " + string(m.themeChoice) + " ▸\n\n")

	if m.app.Saving() {
		b.WriteString(m.spinner.View() + " Saving...\n")
	}
	b.WriteString(s.muted.Render("enter saves, ctrl+x tests the connection, tab switches field"))
	return s.panel.Render(b.String())
}
