package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/news2/shell/internal/config"
	"github.com/news2/shell/internal/domain/navigation"
	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/host"
	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/platform/websocket"
)

func fakeRemote(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, vitals.Health{Status: "ok", Version: "1.2.0"})
	})
	mux.HandleFunc("/api/calculate", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, vitals.Result{
			CrispScore:          3,
			FuzzyScore:          3.4,
			RiskCategory:        vitals.RiskLowMedium,
			RecommendedResponse: "Urgent ward-based response",
			ParameterScores:     map[string]int{"pulse": 1, "temperature": 2},
		})
	})
	mux.HandleFunc("/api/history/PT-404", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "patient not found"})
	})
	mux.HandleFunc("/api/history/PT-001", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []vitals.HistoryRecord{{
			Timestamp:    time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			CrispScore:   2,
			FuzzyScore:   2.1,
			RiskCategory: vitals.RiskLow,
		}})
	})
	mux.HandleFunc("/api/statistics/PT-001", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"average_crisp_score": 2.0, "assessments_count": 1})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func startHost(t *testing.T, remote string) *host.Host {
	t.Helper()
	cfg := &config.Config{
		Env:           "test",
		BridgeAddr:    "127.0.0.1:0",
		SettingsFile:  "/cfg/news2-shell/settings.json",
		RemoteTimeout: 2 * time.Second,
	}
	h, err := host.New(cfg, afero.NewMemMapFs(), zerolog.Nop())
	require.NoError(t, err)
	if remote != "" {
		require.NoError(t, h.Store.SetRemoteEndpoint(remote))
	}
	require.NoError(t, h.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func newClient(t *testing.T, remote string) *Client {
	h := startHost(t, remote)
	return New(h.URL(), h.Token(), 5*time.Second, zerolog.Nop())
}

func TestClient_Ping(t *testing.T) {
	c := newClient(t, "")
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClient_Settings(t *testing.T) {
	c := newClient(t, "")
	ctx := context.Background()

	theme, err := c.GetTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.ThemeLight, theme)

	theme, err = c.SetTheme(ctx, settings.ThemeDark)
	require.NoError(t, err)
	assert.Equal(t, settings.ThemeDark, theme)

	ep, err := c.SetEndpoint(ctx, "http://10.0.0.5:8000")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", ep)

	ep, err = c.GetEndpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", ep)

	g, err := c.SetWindow(ctx, settings.Geometry{Width: 1440, Height: 900})
	require.NoError(t, err)
	assert.Equal(t, 1440, g.Width)
}

func TestClient_InvalidSettingIsInvalidRequest(t *testing.T) {
	c := newClient(t, "")
	_, err := c.SetEndpoint(context.Background(), "ftp://nowhere")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))

	_, err = c.SetWindow(context.Background(), settings.Geometry{Width: 10, Height: 10})
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
}

func TestClient_RecentPatients(t *testing.T) {
	c := newClient(t, "")
	ctx := context.Background()

	list, err := c.RecentPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = c.AddRecent(ctx, "PT-001")
	require.NoError(t, err)
	list, err = c.AddRecent(ctx, "PT-002")
	require.NoError(t, err)
	assert.Equal(t, []string{"PT-002", "PT-001"}, list)

	_, err = c.AddRecent(ctx, "x")
	assert.Equal(t, apperr.KindInvalidRequest, apperr.KindOf(err))
}

func TestClient_RemoteCalls(t *testing.T) {
	remote := fakeRemote(t)
	c := newClient(t, remote.URL)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", health.Version)

	res, err := c.Calculate(ctx, vitals.Submission{
		PatientID:        "PT-001",
		RespiratoryRate:  18,
		OxygenSaturation: 96,
		SystolicBP:       120,
		Pulse:            92,
		Consciousness:    vitals.Alert,
		Temperature:      38.4,
	})
	require.NoError(t, err)
	assert.Equal(t, vitals.RiskLowMedium, res.RiskCategory)
	assert.Equal(t, 2, res.ParameterScores["temperature"])

	recs, err := c.History(ctx, "PT-001", 20)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].CrispScore)

	stats, err := c.Statistics(ctx, "PT-001", 30)
	require.NoError(t, err)
	require.NotNil(t, stats.AverageCrispScore)
	assert.Nil(t, stats.Trend)

	_, err = c.History(ctx, "PT-404", 20)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestClient_UnreachableRemote(t *testing.T) {
	gone := httptest.NewServer(http.NotFoundHandler())
	url := gone.URL
	gone.Close()

	c := newClient(t, url)
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ServiceUnreachable)
}

func TestClient_BadToken(t *testing.T) {
	h := startHost(t, "")
	c := New(h.URL(), "forged", time.Second, zerolog.Nop())

	_, err := c.GetTheme(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestClient_HostDown(t *testing.T) {
	c := New("http://127.0.0.1:1", "token", time.Second, zerolog.Nop())
	_, err := c.RecentPatients(context.Background())
	assert.Equal(t, apperr.KindServiceUnreachable, apperr.KindOf(err))
	assert.Error(t, c.Ping(context.Background()))
}

func TestClient_SubscribeReceivesNavigation(t *testing.T) {
	h := startHost(t, "")
	c := New(h.URL(), h.Token(), 5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := c.Subscribe(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.Hub.TopicCount(websocket.TopicNavigation) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := c.Navigate(ctx, navigation.OpenSettings)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Delivered)

	select {
	case ev := <-events:
		assert.Equal(t, string(navigation.OpenSettings), ev.Type)
		assert.Equal(t, websocket.TopicNavigation, ev.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_SubscribeRejectsBadToken(t *testing.T) {
	h := startHost(t, "")
	c := New(h.URL(), "forged", time.Second, zerolog.Nop())
	_, err := c.Subscribe(context.Background())
	assert.Equal(t, apperr.KindServiceUnreachable, apperr.KindOf(err))
}
