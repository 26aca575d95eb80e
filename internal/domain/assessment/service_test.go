package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/apperr"
)

// -- Mock Scorer --

type mockScorer struct {
	health  vitals.Health
	result  vitals.Result
	history []vitals.HistoryRecord
	stats   vitals.Statistics
	err     error

	calls     int
	lastSub   vitals.Submission
	lastID    string
	lastLimit int
	lastDays  int
}

func (m *mockScorer) HealthCheck(context.Context) (vitals.Health, error) {
	m.calls++
	return m.health, m.err
}

func (m *mockScorer) Calculate(_ context.Context, sub vitals.Submission) (vitals.Result, error) {
	m.calls++
	m.lastSub = sub
	return m.result, m.err
}

func (m *mockScorer) History(_ context.Context, id string, limit int) ([]vitals.HistoryRecord, error) {
	m.calls++
	m.lastID, m.lastLimit = id, limit
	return m.history, m.err
}

func (m *mockScorer) Statistics(_ context.Context, id string, days int) (vitals.Statistics, error) {
	m.calls++
	m.lastID, m.lastDays = id, days
	return m.stats, m.err
}

func validSubmission() vitals.Submission {
	return vitals.Submission{
		PatientID:        "PT-001",
		RespiratoryRate:  16,
		OxygenSaturation: 97,
		SystolicBP:       118,
		Pulse:            72,
		Consciousness:    vitals.Alert,
		Temperature:      36.8,
	}
}

func TestService_Calculate(t *testing.T) {
	m := &mockScorer{result: vitals.Result{CrispScore: 0, RiskCategory: vitals.RiskLow}}
	svc := NewService(m, zerolog.Nop())

	sub := validSubmission()
	sub.PatientID = "  PT-001 "
	res, err := svc.Calculate(context.Background(), sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RiskCategory != vitals.RiskLow {
		t.Errorf("expected Low, got %s", res.RiskCategory)
	}
	if m.lastSub.PatientID != "PT-001" {
		t.Errorf("expected trimmed id, got %q", m.lastSub.PatientID)
	}
}

func TestService_Calculate_RejectsLocally(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*vitals.Submission)
	}{
		{"short id", func(s *vitals.Submission) { s.PatientID = "ab" }},
		{"bad consciousness", func(s *vitals.Submission) { s.Consciousness = "C" }},
		{"negative pulse", func(s *vitals.Submission) { s.Pulse = -1 }},
		{"saturation over 100", func(s *vitals.Submission) { s.OxygenSaturation = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockScorer{}
			svc := NewService(m, zerolog.Nop())
			sub := validSubmission()
			tt.mutate(&sub)

			_, err := svc.Calculate(context.Background(), sub)
			if apperr.KindOf(err) != apperr.KindInvalidRequest {
				t.Errorf("expected invalid_request, got %v", err)
			}
			if m.calls != 0 {
				t.Error("remote must not be called for an invalid submission")
			}
		})
	}
}

func TestService_Calculate_PassesKindThrough(t *testing.T) {
	m := &mockScorer{err: apperr.New(apperr.KindServiceUnreachable, "calculate", "connection refused")}
	svc := NewService(m, zerolog.Nop())

	_, err := svc.Calculate(context.Background(), validSubmission())
	if !errors.Is(err, apperr.ServiceUnreachable) {
		t.Errorf("expected service_unreachable, got %v", err)
	}
	if apperr.MessageOf(err) != "connection refused" {
		t.Errorf("message = %q", apperr.MessageOf(err))
	}
}

func TestService_History(t *testing.T) {
	m := &mockScorer{history: []vitals.HistoryRecord{{Timestamp: time.Now(), CrispScore: 3, RiskCategory: vitals.RiskLowMedium}}}
	svc := NewService(m, zerolog.Nop())

	recs, err := svc.History(context.Background(), "PT-001", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || m.lastID != "PT-001" || m.lastLimit != 20 {
		t.Errorf("recs=%v id=%s limit=%d", recs, m.lastID, m.lastLimit)
	}
}

func TestService_History_LimitBounds(t *testing.T) {
	svc := NewService(&mockScorer{}, zerolog.Nop())
	for _, limit := range []int{0, -1, MaxHistoryLimit + 1} {
		if _, err := svc.History(context.Background(), "PT-001", limit); apperr.KindOf(err) != apperr.KindInvalidRequest {
			t.Errorf("limit %d: expected invalid_request, got %v", limit, err)
		}
	}
}

func TestService_Statistics(t *testing.T) {
	avg := 2.5
	m := &mockScorer{stats: vitals.Statistics{AverageCrispScore: &avg}}
	svc := NewService(m, zerolog.Nop())

	st, err := svc.Statistics(context.Background(), "PT-001", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.AverageCrispScore == nil || *st.AverageCrispScore != 2.5 || m.lastDays != 30 {
		t.Errorf("stats=%+v days=%d", st, m.lastDays)
	}
}

func TestService_Statistics_Invalid(t *testing.T) {
	svc := NewService(&mockScorer{}, zerolog.Nop())
	if _, err := svc.Statistics(context.Background(), "x", 7); apperr.KindOf(err) != apperr.KindInvalidRequest {
		t.Errorf("expected invalid_request for bad id, got %v", err)
	}
	if _, err := svc.Statistics(context.Background(), "PT-001", 366); apperr.KindOf(err) != apperr.KindInvalidRequest {
		t.Errorf("expected invalid_request for days, got %v", err)
	}
}

func TestService_Health(t *testing.T) {
	m := &mockScorer{health: vitals.Health{Status: "ok", Version: "1.0.0"}}
	svc := NewService(m, zerolog.Nop())
	h, err := svc.Health(context.Background())
	if err != nil || h.Status != "ok" {
		t.Errorf("health=%+v err=%v", h, err)
	}

	m.err = apperr.New(apperr.KindServiceUnreachable, "health check", "down")
	if _, err := svc.Health(context.Background()); !errors.Is(err, apperr.ServiceUnreachable) {
		t.Errorf("expected service_unreachable, got %v", err)
	}
}
