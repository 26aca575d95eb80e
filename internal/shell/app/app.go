// Package app is the UI surface's controller. It owns every piece of view
// state and is driven from a single loop: Begin methods run on the loop and
// hand out tickets, the context-taking methods perform bridge calls off the
// loop and return a result message, and Apply methods fold that message back
// in once its ticket has been checked.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/shell/history"
	"github.com/news2/shell/internal/shell/task"
	"github.com/news2/shell/internal/shell/view"
)

// Bridge is the set of host operations the UI uses.
type Bridge interface {
	GetEndpoint(ctx context.Context) (string, error)
	SetEndpoint(ctx context.Context, endpoint string) (string, error)
	GetTheme(ctx context.Context) (settings.Theme, error)
	SetTheme(ctx context.Context, theme settings.Theme) (settings.Theme, error)
	RecentPatients(ctx context.Context) ([]string, error)
	AddRecent(ctx context.Context, id string) ([]string, error)
	Health(ctx context.Context) (vitals.Health, error)
	Calculate(ctx context.Context, sub vitals.Submission) (vitals.Result, error)
	History(ctx context.Context, patientID string, limit int) ([]vitals.HistoryRecord, error)
	Statistics(ctx context.Context, patientID string, days int) (vitals.Statistics, error)
}

// ErrOffline is returned when a submission is attempted without a confirmed
// connection to the remote service.
var ErrOffline = errors.New("remote service is not connected")

// APIStatus is the connection indicator.
type APIStatus int

const (
	StatusChecking APIStatus = iota
	StatusOnline
	StatusOffline
)

func (s APIStatus) String() string {
	switch s {
	case StatusOnline:
		return "online"
	case StatusOffline:
		return "offline"
	default:
		return "checking"
	}
}

// Text is the label shown next to the indicator.
func (s APIStatus) Text() string {
	switch s {
	case StatusOnline:
		return "API Connected"
	case StatusOffline:
		return "API Connection Failed"
	default:
		return "Checking API connection..."
	}
}

// APIInfo describes the last successful health check.
type APIInfo struct {
	Status    string
	Version   string
	LastCheck time.Time
}

// AssessmentView is a scored submission ready to display.
type AssessmentView struct {
	Submission vitals.Submission
	Result     vitals.Result
	Parameters []vitals.ParameterRow
}

// HistoryState is what the History view shows.
type HistoryState struct {
	PatientID string
	Loading   bool
	Failed    bool
	Render    *history.Render
}

type App struct {
	bridge   Bridge
	logger   zerolog.Logger
	now      func() time.Time
	tracker  *task.Tracker
	machine  *view.Machine
	pipeline *history.Pipeline

	status   APIStatus
	apiInfo  *APIInfo
	endpoint string
	theme    settings.Theme
	recent   []string

	assessment *AssessmentView
	submitting bool
	quickBusy  bool
	saving     bool
	history    HistoryState

	toasts    []Toast
	nextToast int
}

// Option configures an App.
type Option func(*App)

// WithClock replaces time.Now, for toast expiry and status timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func New(bridge Bridge, logger zerolog.Logger, opts ...Option) *App {
	tracker := task.NewTracker()
	a := &App{
		bridge:   bridge,
		logger:   logger.With().Str("component", "app").Logger(),
		now:      time.Now,
		tracker:  tracker,
		machine:  view.NewMachine(),
		pipeline: history.NewPipeline(bridge, tracker),
		status:   StatusChecking,
		theme:    settings.ThemeLight,
		recent:   []string{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) View() view.View {
	return a.machine.Current()
}

func (a *App) CurrentPatient() string {
	return a.machine.CurrentPatient()
}

func (a *App) Status() APIStatus {
	return a.status
}

func (a *App) APIInfo() *APIInfo {
	return a.apiInfo
}

func (a *App) Endpoint() string {
	return a.endpoint
}

func (a *App) Theme() settings.Theme {
	return a.theme
}

func (a *App) Assessment() *AssessmentView {
	return a.assessment
}

func (a *App) Submitting() bool {
	return a.submitting
}

func (a *App) QuickSubmitting() bool {
	return a.quickBusy
}

func (a *App) Saving() bool {
	return a.saving
}

func (a *App) History() HistoryState {
	return a.history
}

// RecentPatients returns a copy, most recent first.
func (a *App) RecentPatients() []string {
	return append([]string{}, a.recent...)
}

// Dispatch moves the view machine and performs the bookkeeping every
// transition needs. Entry work that involves a bridge call (history loading)
// is left to the caller.
func (a *App) Dispatch(ev view.Event) (view.Entry, error) {
	entry, err := a.machine.Dispatch(ev)
	if err != nil {
		a.logger.Warn().Err(err).Msg("navigation rejected")
		return entry, err
	}
	if entry.LeftHistory {
		a.pipeline.Abandon()
		a.history.Loading = false
	}
	if entry.ResetForm {
		a.assessment = nil
	}
	if entry.Prefill != nil {
		a.assessment = &AssessmentView{
			Submission: entry.Prefill.Submission,
			Result:     entry.Prefill.Result,
			Parameters: vitals.ParameterTable(entry.Prefill.Submission, entry.Prefill.Result.ParameterScores),
		}
	}
	if entry.LoadHistoryFor != "" {
		a.history.PatientID = entry.LoadHistoryFor
	}
	return entry, nil
}

// OpenPatient shows id's history, as when a recent patient is picked.
func (a *App) OpenPatient(id string) (view.Entry, error) {
	a.machine.SetCurrentPatient(id)
	return a.Dispatch(view.Navigate(view.History))
}
