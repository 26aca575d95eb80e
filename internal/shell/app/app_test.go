package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/shell/view"
)

type fakeBridge struct {
	mu       sync.Mutex
	endpoint string
	theme    settings.Theme
	recent   []string

	healthErr    error
	setEpErr     error
	calcErr      error
	historyErr   error
	statsErr     error
	records      []vitals.HistoryRecord
	calculations int
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{endpoint: settings.DefaultRemoteEndpoint, theme: settings.ThemeLight, recent: []string{}}
}

func (f *fakeBridge) GetEndpoint(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.endpoint, nil
}

func (f *fakeBridge) SetEndpoint(_ context.Context, ep string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setEpErr != nil {
		return "", f.setEpErr
	}
	f.endpoint = ep
	return ep, nil
}

func (f *fakeBridge) GetTheme(context.Context) (settings.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.theme, nil
}

func (f *fakeBridge) SetTheme(_ context.Context, th settings.Theme) (settings.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.theme = th
	return th, nil
}

func (f *fakeBridge) RecentPatients(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.recent...), nil
}

func (f *fakeBridge) AddRecent(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := []string{id}
	for _, r := range f.recent {
		if r != id {
			next = append(next, r)
		}
	}
	f.recent = next
	return append([]string{}, next...), nil
}

func (f *fakeBridge) Health(context.Context) (vitals.Health, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.healthErr != nil {
		return vitals.Health{}, f.healthErr
	}
	return vitals.Health{Status: "healthy", Version: "1.0.0"}, nil
}

func (f *fakeBridge) Calculate(_ context.Context, sub vitals.Submission) (vitals.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calculations++
	if f.calcErr != nil {
		return vitals.Result{}, f.calcErr
	}
	return vitals.Result{
		CrispScore:          5,
		FuzzyScore:          5.2,
		RiskCategory:        vitals.RiskMedium,
		RecommendedResponse: "Key threshold for urgent response",
		ParameterScores:     map[string]int{"pulse": 1, "temperature": 1, "respiratory_rate": 3, "total": 5},
	}, nil
}

func (f *fakeBridge) History(context.Context, string, int) ([]vitals.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, f.historyErr
}

func (f *fakeBridge) Statistics(context.Context, string, int) (vitals.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return vitals.Statistics{}, f.statsErr
}

func submission(id string) vitals.Submission {
	return vitals.Submission{
		PatientID:        id,
		RespiratoryRate:  25,
		OxygenSaturation: 95,
		SystolicBP:       118,
		Pulse:            102,
		Consciousness:    vitals.Alert,
		Temperature:      38.6,
	}
}

func online(t *testing.T, a *App) {
	t.Helper()
	tk := a.BeginHealth()
	require.True(t, a.ApplyHealth(a.CheckHealth(context.Background(), tk)))
	require.Equal(t, StatusOnline, a.Status())
}

func TestApp_StartupLoadsSettings(t *testing.T) {
	b := newFakeBridge()
	b.theme = settings.ThemeDark
	b.recent = []string{"PT-009"}
	a := New(b, zerolog.Nop())

	a.ApplySettings(a.LoadSettings(context.Background()))
	assert.Equal(t, settings.ThemeDark, a.Theme())
	assert.Equal(t, settings.DefaultRemoteEndpoint, a.Endpoint())
	assert.Equal(t, []string{"PT-009"}, a.RecentPatients())
	assert.Empty(t, a.Toasts())
}

func TestApp_HealthStatus(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())
	assert.Equal(t, StatusChecking, a.Status())

	online(t, a)
	require.NotNil(t, a.APIInfo())
	assert.Equal(t, "1.0.0", a.APIInfo().Version)

	b.healthErr = apperr.New(apperr.KindServiceUnreachable, "health check", "connection refused")
	tk := a.BeginHealth()
	assert.Equal(t, StatusChecking, a.Status())
	a.ApplyHealth(a.CheckHealth(context.Background(), tk))
	assert.Equal(t, StatusOffline, a.Status())
	assert.Equal(t, "API Connection Failed", a.Status().Text())
	assert.Nil(t, a.APIInfo())
}

func TestApp_StaleHealthIgnored(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())

	first := a.BeginHealth()
	second := a.BeginHealth()
	b.healthErr = errors.New("boom")
	late := a.CheckHealth(context.Background(), first)

	b.healthErr = nil
	assert.True(t, a.ApplyHealth(a.CheckHealth(context.Background(), second)))
	assert.False(t, a.ApplyHealth(late))
	assert.Equal(t, StatusOnline, a.Status())
}

func TestApp_OfflineSubmitRefused(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())

	_, _, err := a.BeginCalculate(submission("PT-001"), false)
	assert.ErrorIs(t, err, ErrOffline)
	assert.Zero(t, b.calculations)

	toasts := a.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastError, toasts[0].Kind)
	assert.Equal(t, msgOffline, toasts[0].Message)
}

func TestApp_SubmitValidation(t *testing.T) {
	a := New(newFakeBridge(), zerolog.Nop())
	online(t, a)

	_, _, err := a.BeginCalculate(submission("  "), false)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))

	bad := submission("PT-001")
	bad.Consciousness = "X"
	_, _, err = a.BeginCalculate(bad, false)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
	assert.False(t, a.Submitting())
	assert.Len(t, a.Toasts(), 2)
}

func TestApp_FullAssessment(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())
	online(t, a)
	_, _ = a.Dispatch(view.Navigate(view.Assessment))

	tk, sub, err := a.BeginCalculate(submission(" PT-001 "), false)
	require.NoError(t, err)
	assert.Equal(t, "PT-001", sub.PatientID)
	assert.True(t, a.Submitting())

	entry, applied := a.ApplyCalculated(a.Calculate(context.Background(), tk, sub, false))
	require.True(t, applied)
	assert.Nil(t, entry.Prefill)
	assert.False(t, a.Submitting())
	assert.Equal(t, view.Assessment, a.View())

	res := a.Assessment()
	require.NotNil(t, res)
	assert.Equal(t, vitals.RiskMedium, res.Result.RiskCategory)
	require.Len(t, res.Parameters, 3, "total is not a parameter row")
	assert.Equal(t, "Respiratory Rate", res.Parameters[0].Name)
	assert.Equal(t, []string{"PT-001"}, a.RecentPatients())
	assert.Equal(t, "PT-001", a.CurrentPatient())
}

func TestApp_QuickAssessmentNavigatesWithPrefill(t *testing.T) {
	a := New(newFakeBridge(), zerolog.Nop())
	online(t, a)
	require.Equal(t, view.Dashboard, a.View())

	tk, sub, err := a.BeginCalculate(submission("PT-002"), true)
	require.NoError(t, err)
	assert.True(t, a.QuickSubmitting())

	entry, applied := a.ApplyCalculated(a.Calculate(context.Background(), tk, sub, true))
	require.True(t, applied)
	assert.Equal(t, view.Assessment, a.View())
	require.NotNil(t, entry.Prefill)
	assert.Equal(t, 102, entry.Prefill.Submission.Pulse)
	require.NotNil(t, a.Assessment())
	assert.Equal(t, 5, a.Assessment().Result.CrispScore)
	assert.False(t, a.QuickSubmitting())
}

func TestApp_CalculateFailureToasts(t *testing.T) {
	b := newFakeBridge()
	b.calcErr = apperr.New(apperr.KindInvalidRequest, "calculate", "remote service returned 422: pulse must be > 0")
	a := New(b, zerolog.Nop())
	online(t, a)

	tk, sub, err := a.BeginCalculate(submission("PT-001"), false)
	require.NoError(t, err)
	_, applied := a.ApplyCalculated(a.Calculate(context.Background(), tk, sub, false))
	require.True(t, applied)

	assert.Nil(t, a.Assessment())
	assert.Empty(t, a.RecentPatients())
	toasts := a.Toasts()
	require.Len(t, toasts, 1)
	assert.Contains(t, toasts[0].Message, "pulse must be > 0")
}

func TestApp_HistoryLoad(t *testing.T) {
	b := newFakeBridge()
	b.records = []vitals.HistoryRecord{{
		Timestamp:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		CrispScore:   1,
		FuzzyScore:   1.1,
		RiskCategory: vitals.RiskLow,
	}}
	a := New(b, zerolog.Nop())
	_, _ = a.Dispatch(view.Navigate(view.History))

	q, ok := a.BeginHistory("PT-003")
	require.True(t, ok)
	assert.True(t, a.History().Loading)

	require.True(t, a.ApplyHistory(a.LoadHistory(context.Background(), q)))
	st := a.History()
	assert.False(t, st.Loading)
	assert.False(t, st.Failed)
	require.NotNil(t, st.Render)
	assert.Len(t, st.Render.Rows, 1)
	assert.Equal(t, "PT-003", a.CurrentPatient())
	assert.Empty(t, a.RecentPatients(), "recents change only after the touch")

	a.ApplyRecent(a.TouchRecent(context.Background(), q.PatientID))
	assert.Equal(t, []string{"PT-003"}, a.RecentPatients())
}

func TestApp_DiscardedHistoryLeavesRecentsAlone(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())
	_, _ = a.Dispatch(view.Navigate(view.History))

	first, _ := a.BeginHistory("PT-001")
	_, _ = a.BeginHistory("PT-002")
	assert.False(t, a.ApplyHistory(a.LoadHistory(context.Background(), first)))

	abandoned, _ := a.BeginHistory("PT-003")
	_, _ = a.Dispatch(view.Navigate(view.Dashboard))
	assert.False(t, a.ApplyHistory(a.LoadHistory(context.Background(), abandoned)))

	recent, err := b.RecentPatients(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recent)
	assert.Empty(t, a.RecentPatients())
}

func TestApp_HistoryRejectsBadID(t *testing.T) {
	a := New(newFakeBridge(), zerolog.Nop())
	_, ok := a.BeginHistory("")
	assert.False(t, ok)
	_, ok = a.BeginHistory("a b")
	assert.False(t, ok)
	assert.Len(t, a.Toasts(), 2)
}

func TestApp_HistoryNotFoundIsNoData(t *testing.T) {
	b := newFakeBridge()
	b.historyErr = apperr.New(apperr.KindNotFound, "get history", "patient not found")
	b.statsErr = apperr.New(apperr.KindNotFound, "get statistics", "patient not found")
	a := New(b, zerolog.Nop())

	q, _ := a.BeginHistory("PT-404")
	require.True(t, a.ApplyHistory(a.LoadHistory(context.Background(), q)))
	require.NotNil(t, a.History().Render)
	assert.True(t, a.History().Render.Empty)
	assert.Empty(t, a.Toasts())
}

func TestApp_HistoryFailureKeepsLastRender(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())

	q, _ := a.BeginHistory("PT-001")
	require.True(t, a.ApplyHistory(a.LoadHistory(context.Background(), q)))
	last := a.History().Render
	require.NotNil(t, last)

	b.statsErr = apperr.New(apperr.KindServiceUnreachable, "get statistics", "timeout")
	q, _ = a.BeginHistory("PT-002")
	require.True(t, a.ApplyHistory(a.LoadHistory(context.Background(), q)))

	st := a.History()
	assert.True(t, st.Failed)
	assert.Same(t, last, st.Render)
	toasts := a.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, msgHistoryFailed, toasts[0].Message)
}

func TestApp_StaleHistoryDiscarded(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())
	_, _ = a.Dispatch(view.Navigate(view.History))

	first, _ := a.BeginHistory("PT-001")
	second, _ := a.BeginHistory("PT-002")

	lateFirst := a.LoadHistory(context.Background(), first)
	assert.False(t, a.ApplyHistory(lateFirst))
	assert.Nil(t, a.History().Render)
	assert.Equal(t, "PT-002", a.History().PatientID)

	assert.True(t, a.ApplyHistory(a.LoadHistory(context.Background(), second)))
}

func TestApp_LeavingHistoryAbandonsQuery(t *testing.T) {
	a := New(newFakeBridge(), zerolog.Nop())
	_, _ = a.Dispatch(view.Navigate(view.History))
	q, _ := a.BeginHistory("PT-001")

	entry, err := a.Dispatch(view.Navigate(view.Dashboard))
	require.NoError(t, err)
	assert.True(t, entry.LeftHistory)
	assert.False(t, a.History().Loading)
	assert.False(t, a.ApplyHistory(a.LoadHistory(context.Background(), q)))
}

func TestApp_OpenPatient(t *testing.T) {
	a := New(newFakeBridge(), zerolog.Nop())
	entry, err := a.OpenPatient("PT-007")
	require.NoError(t, err)
	assert.Equal(t, view.History, a.View())
	assert.Equal(t, "PT-007", entry.LoadHistoryFor)
}

func TestApp_SaveSettings(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())

	tk, htk := a.BeginSaveSettings()
	assert.True(t, a.Saving())
	m := a.SaveSettings(context.Background(), tk, htk, " http://10.1.1.1:8000 ", settings.ThemeDark)
	require.True(t, a.ApplySettingsSaved(m))

	assert.False(t, a.Saving())
	assert.Equal(t, "http://10.1.1.1:8000", a.Endpoint())
	assert.Equal(t, settings.ThemeDark, a.Theme())
	assert.Equal(t, StatusOnline, a.Status())
	toasts := a.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, msgSettingsSaved, toasts[0].Message)
}

func TestApp_SaveSettingsFailure(t *testing.T) {
	b := newFakeBridge()
	b.setEpErr = apperr.New(apperr.KindInvalidRequest, "set endpoint", "endpoint must use http or https")
	a := New(b, zerolog.Nop())

	tk, htk := a.BeginSaveSettings()
	require.True(t, a.ApplySettingsSaved(a.SaveSettings(context.Background(), tk, htk, "ftp://x", settings.ThemeDark)))

	assert.Equal(t, settings.ThemeLight, a.Theme())
	assert.Equal(t, StatusOnline, a.Status(), "the stored endpoint is still probed")
	toasts := a.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastError, toasts[0].Kind)
}

func TestApp_TestConnection(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())

	_, ok := a.BeginTestConnection("  ")
	assert.False(t, ok)

	tk, ok := a.BeginTestConnection("http://10.2.2.2:8000")
	require.True(t, ok)
	a.ApplyHealth(a.TestConnection(context.Background(), tk, "http://10.2.2.2:8000"))
	assert.Equal(t, "http://10.2.2.2:8000", b.endpoint)

	b.healthErr = errors.New("refused")
	tk, _ = a.BeginTestConnection("http://10.3.3.3:8000")
	a.ApplyHealth(a.TestConnection(context.Background(), tk, "http://10.3.3.3:8000"))
	assert.Equal(t, StatusOffline, a.Status())

	toasts := a.Toasts()
	require.Len(t, toasts, 3)
	assert.Equal(t, msgNoAPIURL, toasts[0].Message)
	assert.Equal(t, msgConnectionOK, toasts[1].Message)
	assert.Equal(t, msgConnectionFail, toasts[2].Message)
}

func TestApp_ToggleTheme(t *testing.T) {
	b := newFakeBridge()
	a := New(b, zerolog.Nop())

	tk, next := a.BeginToggleTheme()
	assert.Equal(t, settings.ThemeDark, next)
	require.True(t, a.ApplyTheme(a.SetTheme(context.Background(), tk, next)))
	assert.Equal(t, settings.ThemeDark, a.Theme())
	assert.Equal(t, settings.ThemeDark, b.theme)
}

func TestApp_HostEvents(t *testing.T) {
	a := New(newFakeBridge(), zerolog.Nop())

	entry, err := a.HandleHostEvent("open-settings")
	require.NoError(t, err)
	assert.Equal(t, view.Settings, entry.To)

	entry, err = a.HandleHostEvent("new-assessment")
	require.NoError(t, err)
	assert.True(t, entry.ResetForm)
	assert.Equal(t, view.Assessment, a.View())

	_, err = a.HandleHostEvent("reboot")
	assert.Error(t, err)
	assert.Equal(t, view.Assessment, a.View())
}

func TestApp_ToastsExpire(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	a := New(newFakeBridge(), zerolog.Nop(), WithClock(func() time.Time { return now }))

	_, _ = a.BeginHistory("")
	require.Len(t, a.Toasts(), 1)

	now = now.Add(ToastTTL - time.Millisecond)
	_, _ = a.BeginHistory("")
	toasts := a.Toasts()
	require.Len(t, toasts, 2)
	assert.Equal(t, "Error", toasts[0].Kind.Title())

	now = now.Add(2 * time.Millisecond)
	assert.Len(t, a.Toasts(), 1)

	a.DismissToast(a.Toasts()[0].ID)
	assert.Empty(t, a.Toasts())
}
