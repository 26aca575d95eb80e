package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/news2/shell/internal/domain/assessment"
	"github.com/news2/shell/internal/domain/navigation"
	"github.com/news2/shell/internal/domain/patient"
	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/shell/history"
	"github.com/news2/shell/internal/shell/task"
	"github.com/news2/shell/internal/shell/view"
)

const (
	msgNoPatientID     = "Please enter a patient ID"
	msgNoAPIURL        = "Please enter an API URL"
	msgOffline         = "API is not connected. Please check your connection."
	msgCalculateFailed = "Error calculating assessment"
	msgHistoryFailed   = "Error loading patient history"
	msgSettingsSaved   = "Settings saved successfully"
	msgSettingsFailed  = "Error saving settings"
	msgConnectionOK    = "API connection successful"
	msgConnectionFail  = "API connection failed"
)

// SettingsLoaded carries the persisted preferences read at startup.
type SettingsLoaded struct {
	Endpoint string
	Theme    settings.Theme
	Recent   []string
	Err      error
}

// LoadSettings reads endpoint, theme and recent patients from the host. Each
// value is read independently and every failure is reported.
func (a *App) LoadSettings(ctx context.Context) SettingsLoaded {
	var out SettingsLoaded
	var errs error

	ep, err := a.bridge.GetEndpoint(ctx)
	errs = multierr.Append(errs, err)
	out.Endpoint = ep

	theme, err := a.bridge.GetTheme(ctx)
	errs = multierr.Append(errs, err)
	out.Theme = theme

	recent, err := a.bridge.RecentPatients(ctx)
	errs = multierr.Append(errs, err)
	out.Recent = recent

	out.Err = errs
	return out
}

func (a *App) ApplySettings(m SettingsLoaded) {
	if m.Endpoint != "" {
		a.endpoint = m.Endpoint
	}
	if m.Theme != "" {
		a.theme = m.Theme
	}
	if m.Recent != nil {
		a.recent = m.Recent
	}
	if m.Err != nil {
		a.logger.Error().Err(m.Err).Msg("loading settings")
		a.toast(ToastError, "Error loading settings")
	}
}

// HealthChecked is the outcome of one health probe.
type HealthChecked struct {
	Ticket task.Ticket
	Health vitals.Health
	Err    error
	// Announce raises a success or failure toast, as for a user-initiated
	// connection test.
	Announce bool
}

// BeginHealth puts the indicator into the checking state.
func (a *App) BeginHealth() task.Ticket {
	a.status = StatusChecking
	return a.tracker.Begin(task.SlotHealth)
}

func (a *App) CheckHealth(ctx context.Context, tk task.Ticket) HealthChecked {
	h, err := a.bridge.Health(ctx)
	return HealthChecked{Ticket: tk, Health: h, Err: err}
}

// ApplyHealth reports false when a newer probe has superseded this one.
func (a *App) ApplyHealth(m HealthChecked) bool {
	if !a.tracker.Finish(m.Ticket) {
		return false
	}
	if m.Err != nil {
		a.status = StatusOffline
		a.apiInfo = nil
		a.logger.Warn().Err(m.Err).Str("kind", string(apperr.KindOf(m.Err))).Msg("health check failed")
		if m.Announce {
			a.toast(ToastError, msgConnectionFail)
		}
		return true
	}
	a.status = StatusOnline
	a.apiInfo = &APIInfo{Status: m.Health.Status, Version: m.Health.Version, LastCheck: a.now()}
	if m.Announce {
		a.toast(ToastSuccess, msgConnectionOK)
	}
	return true
}

// BeginTestConnection validates the typed URL before anything is sent.
func (a *App) BeginTestConnection(endpoint string) (task.Ticket, bool) {
	if strings.TrimSpace(endpoint) == "" {
		a.toast(ToastError, msgNoAPIURL)
		return task.Ticket{}, false
	}
	return a.BeginHealth(), true
}

// TestConnection stores endpoint on the host and probes it.
func (a *App) TestConnection(ctx context.Context, tk task.Ticket, endpoint string) HealthChecked {
	if _, err := a.bridge.SetEndpoint(ctx, strings.TrimSpace(endpoint)); err != nil {
		return HealthChecked{Ticket: tk, Err: err, Announce: true}
	}
	m := a.CheckHealth(ctx, tk)
	m.Announce = true
	return m
}

// SettingsSaved is the outcome of saving the settings form.
type SettingsSaved struct {
	Ticket   task.Ticket
	Endpoint string
	Theme    settings.Theme
	Health   HealthChecked
	Err      error
}

// BeginSaveSettings starts a save; the health probe that follows it
// supersedes any other probe in flight.
func (a *App) BeginSaveSettings() (task.Ticket, task.Ticket) {
	a.saving = true
	return a.tracker.Begin(task.SlotSettings), a.BeginHealth()
}

// SaveSettings writes endpoint then theme, then re-checks the connection.
func (a *App) SaveSettings(ctx context.Context, tk, healthTk task.Ticket, endpoint string, theme settings.Theme) SettingsSaved {
	out := SettingsSaved{Ticket: tk, Health: HealthChecked{Ticket: healthTk}}

	ep, err := a.bridge.SetEndpoint(ctx, strings.TrimSpace(endpoint))
	if err == nil {
		out.Endpoint = ep
		out.Theme, err = a.bridge.SetTheme(ctx, theme)
	}
	out.Err = err

	// The indicator reflects whichever endpoint the host now holds.
	out.Health = a.CheckHealth(ctx, healthTk)
	return out
}

func (a *App) ApplySettingsSaved(m SettingsSaved) bool {
	a.ApplyHealth(m.Health)
	if !a.tracker.Finish(m.Ticket) {
		return false
	}
	a.saving = false

	if m.Endpoint != "" {
		a.endpoint = m.Endpoint
	}
	if m.Err != nil {
		a.logger.Error().Err(m.Err).Msg("saving settings")
		a.toast(ToastError, msgSettingsFailed+": "+apperr.MessageOf(m.Err))
		return true
	}
	a.theme = m.Theme
	a.toast(ToastSuccess, msgSettingsSaved)
	return true
}

// ThemeChanged is the outcome of a theme toggle.
type ThemeChanged struct {
	Ticket task.Ticket
	Theme  settings.Theme
	Err    error
}

func (a *App) BeginToggleTheme() (task.Ticket, settings.Theme) {
	return a.tracker.Begin(task.SlotSettings), a.theme.Toggle()
}

func (a *App) SetTheme(ctx context.Context, tk task.Ticket, theme settings.Theme) ThemeChanged {
	th, err := a.bridge.SetTheme(ctx, theme)
	return ThemeChanged{Ticket: tk, Theme: th, Err: err}
}

func (a *App) ApplyTheme(m ThemeChanged) bool {
	if !a.tracker.Finish(m.Ticket) {
		return false
	}
	if m.Err != nil {
		a.toast(ToastError, msgSettingsFailed+": "+apperr.MessageOf(m.Err))
		return true
	}
	a.theme = m.Theme
	return true
}

// Calculated is the outcome of a scoring request.
type Calculated struct {
	Ticket     task.Ticket
	Quick      bool
	Submission vitals.Submission
	Result     vitals.Result
	Recent     []string
	Err        error
}

// BeginCalculate refuses locally when the service is not known to be online
// or the form is incomplete.
func (a *App) BeginCalculate(sub vitals.Submission, quick bool) (task.Ticket, vitals.Submission, error) {
	if a.status != StatusOnline {
		a.toast(ToastError, msgOffline)
		return task.Ticket{}, sub, ErrOffline
	}
	sub.PatientID = patient.NormalizeID(sub.PatientID)
	if sub.PatientID == "" {
		a.toast(ToastError, msgNoPatientID)
		return task.Ticket{}, sub, apperr.New(apperr.KindInvalidRequest, "calculate", msgNoPatientID)
	}
	if err := assessment.ValidateSubmission(sub); err != nil {
		a.toast(ToastError, err.Error())
		return task.Ticket{}, sub, apperr.Wrap(apperr.KindInvalidRequest, "calculate", err)
	}
	if quick {
		a.quickBusy = true
	} else {
		a.submitting = true
	}
	return a.tracker.Begin(task.SlotCalculate), sub, nil
}

// Calculate scores sub and, on success, records the patient as recent.
func (a *App) Calculate(ctx context.Context, tk task.Ticket, sub vitals.Submission, quick bool) Calculated {
	out := Calculated{Ticket: tk, Quick: quick, Submission: sub}
	res, err := a.bridge.Calculate(ctx, sub)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res
	out.Recent = a.touchRecent(ctx, sub.PatientID)
	return out
}

// ApplyCalculated folds a scoring result in. A quick submission stages the
// result and moves to Assessment; the returned entry describes that move and
// is zero otherwise.
func (a *App) ApplyCalculated(m Calculated) (view.Entry, bool) {
	if m.Quick {
		a.quickBusy = false
	} else {
		a.submitting = false
	}
	if !a.tracker.Finish(m.Ticket) {
		return view.Entry{}, false
	}
	if m.Err != nil {
		a.logger.Error().Err(m.Err).Str("patient_id", m.Submission.PatientID).Msg("calculate failed")
		a.toast(ToastError, msgCalculateFailed+": "+apperr.MessageOf(m.Err))
		return view.Entry{}, true
	}
	if m.Recent != nil {
		a.recent = m.Recent
	}
	a.machine.SetCurrentPatient(m.Submission.PatientID)

	if !m.Quick {
		a.assessment = &AssessmentView{
			Submission: m.Submission,
			Result:     m.Result,
			Parameters: vitals.ParameterTable(m.Submission, m.Result.ParameterScores),
		}
		return view.Entry{}, true
	}

	a.machine.StagePrefill(view.Prefill{Submission: m.Submission, Result: m.Result})
	entry, err := a.Dispatch(view.Navigate(view.Assessment))
	if err != nil {
		return view.Entry{}, true
	}
	return entry, true
}

// HistoryLoaded is the outcome of one history lookup.
type HistoryLoaded struct {
	Query  history.Query
	Render *history.Render
	Err    error
}

// BeginHistory validates id and supersedes any lookup in flight.
func (a *App) BeginHistory(id string) (history.Query, bool) {
	id = patient.NormalizeID(id)
	if id == "" {
		a.toast(ToastError, msgNoPatientID)
		return history.Query{}, false
	}
	if err := patient.ValidateID(id); err != nil {
		a.toast(ToastError, err.Error())
		return history.Query{}, false
	}
	a.history.PatientID = id
	a.history.Loading = true
	a.history.Failed = false
	return a.pipeline.Begin(id), true
}

// LoadHistory runs the pipeline. A patient the service does not know yields
// the no-data render. Recents are left alone until ApplyHistory accepts the
// result; see TouchRecent.
func (a *App) LoadHistory(ctx context.Context, q history.Query) HistoryLoaded {
	out := HistoryLoaded{Query: q}
	r, err := a.pipeline.Load(ctx, q)
	if err != nil && allNotFound(err) {
		r, err = history.Build(q.PatientID, nil, vitals.Statistics{}), nil
	}
	if err != nil {
		out.Err = err
		return out
	}
	out.Render = r
	return out
}

// ApplyHistory reports false for a lookup that is no longer active; its
// result is discarded untouched.
func (a *App) ApplyHistory(m HistoryLoaded) bool {
	if !a.pipeline.Current(m.Query) {
		a.logger.Debug().Str("patient_id", m.Query.PatientID).Msg("discarding stale history")
		return false
	}
	a.tracker.Finish(m.Query.Ticket)
	a.history.Loading = false

	if m.Err != nil {
		a.history.Failed = true
		a.logger.Error().Err(m.Err).Str("patient_id", m.Query.PatientID).Msg("history load failed")
		a.toast(ToastError, msgHistoryFailed)
		return true
	}
	a.history.Failed = false
	a.history.Render = m.Render
	a.machine.SetCurrentPatient(m.Query.PatientID)
	return true
}

// RecentTouched carries the recent-patient list after a patient was recorded.
type RecentTouched struct {
	PatientID string
	Recent    []string
}

// TouchRecent records id as the most recent patient. Call it only for a
// lookup ApplyHistory accepted, so superseded and abandoned queries never
// reach the list.
func (a *App) TouchRecent(ctx context.Context, id string) RecentTouched {
	return RecentTouched{PatientID: id, Recent: a.touchRecent(ctx, id)}
}

func (a *App) ApplyRecent(m RecentTouched) {
	if m.Recent != nil {
		a.recent = m.Recent
	}
}

// HandleHostEvent turns a pushed host menu event into a view transition.
func (a *App) HandleHostEvent(eventType string) (view.Entry, error) {
	switch eventType {
	case string(navigation.NewAssessment):
		return a.Dispatch(view.NewAssessmentRequested())
	case string(navigation.OpenSettings):
		return a.Dispatch(view.SettingsRequested())
	}
	return view.Entry{}, fmt.Errorf("unknown host event %q", eventType)
}

func (a *App) touchRecent(ctx context.Context, id string) []string {
	list, err := a.bridge.AddRecent(ctx, id)
	if err != nil {
		a.logger.Warn().Err(err).Str("patient_id", id).Msg("updating recent patients")
		return nil
	}
	return list
}

func allNotFound(err error) bool {
	for _, e := range multierr.Errors(err) {
		if !errors.Is(e, apperr.NotFound) {
			return false
		}
	}
	return true
}
