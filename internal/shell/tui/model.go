// Package tui is the terminal rendering of the UI surface. All state lives in
// the app controller; this package maps keys onto controller operations,
// turns bridge calls into tea.Cmds and draws the result.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/platform/websocket"
	"github.com/news2/shell/internal/shell/app"
	"github.com/news2/shell/internal/shell/chart"
	"github.com/news2/shell/internal/shell/export"
	"github.com/news2/shell/internal/shell/history"
	"github.com/news2/shell/internal/shell/task"
	"github.com/news2/shell/internal/shell/view"
)

const toastTick = time.Second

type (
	tickMsg         time.Time
	hostEventMsg    websocket.Event
	eventsClosedMsg struct{}
	exportedMsg     struct {
		paths []string
		err   error
	}
)

type settingsFocus int

const (
	focusEndpoint settingsFocus = iota
	focusTheme
)

// Config holds what the model needs besides the bridge.
type Config struct {
	Logger    zerolog.Logger
	Fs        afero.Fs
	ExportDir string
}

type Model struct {
	ctx    context.Context
	app    *app.App
	events <-chan websocket.Event
	cfg    Config
	logger zerolog.Logger

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	styles  styles

	width  int
	height int

	quick        vitalsForm
	form         vitalsForm
	search       textinput.Model
	results      table.Model
	endpoint     textinput.Model
	themeChoice  settings.Theme
	settingsPane settingsFocus
	recentIdx    int
}

// NewModel builds the root model. events may be nil when the host's event
// stream is unavailable.
func NewModel(ctx context.Context, b app.Bridge, events <-chan websocket.Event, cfg Config) *Model {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}

	search := textinput.New()
	search.Placeholder = "Patient ID"
	search.CharLimit = 64

	endpoint := textinput.New()
	endpoint.Placeholder = settings.DefaultRemoteEndpoint
	endpoint.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:         ctx,
		app:         app.New(b, cfg.Logger),
		events:      events,
		cfg:         cfg,
		logger:      cfg.Logger.With().Str("component", "tui").Logger(),
		keys:        defaultKeys(),
		help:        help.New(),
		spinner:     sp,
		styles:      newStyles(settings.ThemeLight),
		quick:       newVitalsForm(),
		form:        newVitalsForm(),
		search:      search,
		results:     newResultsTable(),
		endpoint:    endpoint,
		themeChoice: settings.ThemeLight,
	}
	m.quick.Focus()
	return m
}

// App exposes the controller, mainly for tests.
func (m *Model) App() *app.App {
	return m.app
}

func (m *Model) Init() tea.Cmd {
	tk := m.app.BeginHealth()
	return tea.Batch(
		m.loadSettings(),
		m.checkHealth(tk),
		m.waitForEvent(),
		tick(),
		textinput.Blink,
	)
}

func tick() tea.Cmd {
	return tea.Tick(toastTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.results.SetWidth(min(msg.Width-4, 120))
		m.results.SetHeight(max(msg.Height/3, 5))
		return m, nil

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case app.SettingsLoaded:
		m.app.ApplySettings(msg)
		m.syncSettings()
		return m, nil

	case app.HealthChecked:
		m.app.ApplyHealth(msg)
		return m, nil

	case app.SettingsSaved:
		if m.app.ApplySettingsSaved(msg) {
			m.syncSettings()
		}
		return m, nil

	case app.ThemeChanged:
		if m.app.ApplyTheme(msg) {
			m.syncSettings()
		}
		return m, nil

	case app.Calculated:
		entry, ok := m.app.ApplyCalculated(msg)
		if !ok || msg.Err != nil {
			return m, nil
		}
		if msg.Quick {
			m.quick.Reset()
			return m, m.enter(entry)
		}
		return m, nil

	case app.HistoryLoaded:
		if !m.app.ApplyHistory(msg) {
			return m, nil
		}
		m.syncResults()
		if msg.Err != nil {
			return m, nil
		}
		id := msg.Query.PatientID
		return m, func() tea.Msg { return m.app.TouchRecent(m.ctx, id) }

	case app.RecentTouched:
		m.app.ApplyRecent(msg)
		return m, nil

	case hostEventMsg:
		var cmd tea.Cmd
		if entry, err := m.app.HandleHostEvent(msg.Type); err != nil {
			m.logger.Warn().Err(err).Msg("ignoring host event")
		} else {
			cmd = m.enter(entry)
		}
		return m, tea.Batch(cmd, m.waitForEvent())

	case eventsClosedMsg:
		m.logger.Info().Msg("host event stream closed")
		m.events = nil
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.logger.Error().Err(msg.err).Msg("export failed")
			m.app.Notify(app.ToastError, "Export failed: "+msg.err.Error())
		} else {
			m.app.Notify(app.ToastSuccess, "Exported "+joinBase(msg.paths))
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) busy() bool {
	return m.app.Submitting() || m.app.QuickSubmitting() || m.app.Saving() || m.app.History().Loading
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Dashboard):
		return m.navigate(view.Dashboard)
	case key.Matches(msg, m.keys.Assessment):
		return m.navigate(view.Assessment)
	case key.Matches(msg, m.keys.History):
		return m.navigate(view.History)
	case key.Matches(msg, m.keys.Settings):
		return m.navigate(view.Settings)
	case key.Matches(msg, m.keys.NewAssessment):
		entry, err := m.app.Dispatch(view.NewAssessmentRequested())
		if err != nil {
			return nil
		}
		return m.enter(entry)
	case key.Matches(msg, m.keys.Theme):
		tk, next := m.app.BeginToggleTheme()
		return func() tea.Msg { return m.app.SetTheme(m.ctx, tk, next) }
	case key.Matches(msg, m.keys.Retry):
		return m.checkHealth(m.app.BeginHealth())
	case key.Matches(msg, m.keys.Dismiss):
		if toasts := m.app.Toasts(); len(toasts) > 0 {
			m.app.DismissToast(toasts[0].ID)
		}
		return nil
	}

	switch m.app.View() {
	case view.Dashboard:
		return m.dashboardKey(msg)
	case view.Assessment:
		return m.assessmentKey(msg)
	case view.History:
		return m.historyKey(msg)
	case view.Settings:
		return m.settingsKey(msg)
	}
	return nil
}

func (m *Model) dashboardKey(msg tea.KeyMsg) tea.Cmd {
	recent := m.app.RecentPatients()
	switch {
	case key.Matches(msg, m.keys.Next):
		return m.quick.Next()
	case key.Matches(msg, m.keys.Prev):
		return m.quick.Prev()
	case key.Matches(msg, m.keys.Submit):
		return m.submit(&m.quick, true)
	case key.Matches(msg, m.keys.RecentUp):
		if m.recentIdx > 0 {
			m.recentIdx--
		}
		return nil
	case key.Matches(msg, m.keys.RecentDown):
		if m.recentIdx < len(recent)-1 {
			m.recentIdx++
		}
		return nil
	case key.Matches(msg, m.keys.OpenRecent):
		if m.recentIdx >= len(recent) {
			return nil
		}
		entry, err := m.app.OpenPatient(recent[m.recentIdx])
		if err != nil {
			return nil
		}
		return m.enter(entry)
	}
	return m.quick.Update(msg)
}

func (m *Model) assessmentKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Next):
		return m.form.Next()
	case key.Matches(msg, m.keys.Prev):
		return m.form.Prev()
	case key.Matches(msg, m.keys.Submit):
		return m.submit(&m.form, false)
	}
	return m.form.Update(msg)
}

func (m *Model) historyKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.beginHistory(m.search.Value())
	case key.Matches(msg, m.keys.Export):
		return m.export()
	case key.Matches(msg, m.keys.TableUp), key.Matches(msg, m.keys.TableDown):
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return cmd
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *Model) settingsKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Next), key.Matches(msg, m.keys.Prev):
		if m.settingsPane == focusEndpoint {
			m.settingsPane = focusTheme
			m.endpoint.Blur()
			return nil
		}
		m.settingsPane = focusEndpoint
		return m.endpoint.Focus()
	case key.Matches(msg, m.keys.Submit):
		tk, htk := m.app.BeginSaveSettings()
		ep, theme := m.endpoint.Value(), m.themeChoice
		return tea.Batch(
			func() tea.Msg { return m.app.SaveSettings(m.ctx, tk, htk, ep, theme) },
			m.spinner.Tick,
		)
	case key.Matches(msg, m.keys.TestConn):
		ep := m.endpoint.Value()
		tk, ok := m.app.BeginTestConnection(ep)
		if !ok {
			return nil
		}
		return func() tea.Msg { return m.app.TestConnection(m.ctx, tk, ep) }
	}
	if m.settingsPane == focusTheme {
		if key.Matches(msg, m.keys.ToggleChoice) {
			m.themeChoice = m.themeChoice.Toggle()
		}
		return nil
	}
	var cmd tea.Cmd
	m.endpoint, cmd = m.endpoint.Update(msg)
	return cmd
}

func (m *Model) navigate(v view.View) tea.Cmd {
	entry, err := m.app.Dispatch(view.Navigate(v))
	if err != nil {
		return nil
	}
	return m.enter(entry)
}

// enter performs the UI side of a transition: form state, focus and, for
// History, the lookup the controller asked for.
func (m *Model) enter(entry view.Entry) tea.Cmd {
	if entry.ResetForm {
		m.form.Reset()
	}
	if entry.Prefill != nil {
		m.form.Fill(entry.Prefill.Submission)
	}

	m.quick.Blur()
	m.form.Blur()
	m.search.Blur()
	m.endpoint.Blur()

	var cmds []tea.Cmd
	switch entry.To {
	case view.Dashboard:
		cmds = append(cmds, m.quick.Focus())
	case view.Assessment:
		cmds = append(cmds, m.form.Focus())
	case view.History:
		cmds = append(cmds, m.search.Focus())
		if entry.LoadHistoryFor != "" {
			m.search.SetValue(entry.LoadHistoryFor)
			cmds = append(cmds, m.beginHistory(entry.LoadHistoryFor))
		}
	case view.Settings:
		m.syncSettings()
		m.settingsPane = focusEndpoint
		cmds = append(cmds, m.endpoint.Focus())
	}
	return tea.Batch(cmds...)
}

func (m *Model) submit(f *vitalsForm, quick bool) tea.Cmd {
	sub, err := f.Submission()
	if err != nil {
		m.app.Notify(app.ToastError, err.Error())
		return nil
	}
	tk, sub, err := m.app.BeginCalculate(sub, quick)
	if err != nil {
		return nil
	}
	return tea.Batch(
		func() tea.Msg { return m.app.Calculate(m.ctx, tk, sub, quick) },
		m.spinner.Tick,
	)
}

func (m *Model) beginHistory(id string) tea.Cmd {
	q, ok := m.app.BeginHistory(id)
	if !ok {
		return nil
	}
	return tea.Batch(
		func() tea.Msg { return m.app.LoadHistory(m.ctx, q) },
		m.spinner.Tick,
	)
}

func (m *Model) loadSettings() tea.Cmd {
	return func() tea.Msg { return m.app.LoadSettings(m.ctx) }
}

func (m *Model) checkHealth(tk task.Ticket) tea.Cmd {
	return func() tea.Msg { return m.app.CheckHealth(m.ctx, tk) }
}

func (m *Model) waitForEvent() tea.Cmd {
	ch := m.events
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return hostEventMsg(ev)
	}
}

// syncSettings copies persisted settings into the settings form and styles.
func (m *Model) syncSettings() {
	m.styles = newStyles(m.app.Theme())
	m.themeChoice = m.app.Theme()
	if !m.endpoint.Focused() || m.endpoint.Value() == "" {
		m.endpoint.SetValue(m.app.Endpoint())
	}
}

func (m *Model) syncResults() {
	r := m.app.History().Render
	if r == nil || r.Empty {
		m.results.SetRows(nil)
		return
	}
	m.results.SetRows(resultRows(r))
	m.results.GotoTop()
}

func (m *Model) export() tea.Cmd {
	r := m.app.History().Render
	if r == nil || r.Empty {
		m.app.Notify(app.ToastInfo, "Nothing to export")
		return nil
	}
	fs, dir, theme := m.cfg.Fs, m.cfg.ExportDir, m.app.Theme()
	return func() tea.Msg {
		paths, err := Export(fs, dir, r, theme)
		return exportedMsg{paths: paths, err: err}
	}
}

// Export writes the workbook and chart image for r into dir and returns the
// paths written.
func Export(fs afero.Fs, dir string, r *history.Render, theme settings.Theme) ([]string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	xlsxPath := filepath.Join(dir, fmt.Sprintf("%s-history-%s.xlsx", r.PatientID, stamp))
	pngPath := filepath.Join(dir, fmt.Sprintf("%s-trend-%s.png", r.PatientID, stamp))

	if err := writeFile(fs, xlsxPath, func(f afero.File) error { return export.WriteXLSX(f, r) }); err != nil {
		return nil, err
	}
	if err := writeFile(fs, pngPath, func(f afero.File) error {
		return chart.Render(f, r.Chart, theme, chart.DefaultWidth, chart.DefaultHeight)
	}); err != nil {
		return []string{xlsxPath}, err
	}
	return []string{xlsxPath, pngPath}, nil
}

func writeFile(fs afero.Fs, path string, write func(afero.File) error) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		_ = fs.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func joinBase(paths []string) string {
	out := ""
	for i, p := range paths {
		if i > 0 {
			out += ", "
		}
		out += filepath.Base(p)
	}
	return out
}
