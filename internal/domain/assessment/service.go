// Package assessment is the bridge face of the remote scoring service. It
// validates what the UI sends, forwards it through the host's outbound
// client, and logs every remote failure before handing the kind back.
package assessment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/news2/shell/internal/domain/patient"
	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/apperr"
)

const (
	DefaultHistoryLimit   = 10
	MaxHistoryLimit       = 100
	DefaultStatisticsDays = 7
	MaxStatisticsDays     = 365
)

// Scorer is the outbound client. *scoring.Client satisfies it.
type Scorer interface {
	HealthCheck(ctx context.Context) (vitals.Health, error)
	Calculate(ctx context.Context, sub vitals.Submission) (vitals.Result, error)
	History(ctx context.Context, patientID string, limit int) ([]vitals.HistoryRecord, error)
	Statistics(ctx context.Context, patientID string, days int) (vitals.Statistics, error)
}

type Service struct {
	scorer Scorer
	logger zerolog.Logger
}

func NewService(scorer Scorer, logger zerolog.Logger) *Service {
	return &Service{scorer: scorer, logger: logger.With().Str("component", "assessment").Logger()}
}

func (s *Service) Health(ctx context.Context) (vitals.Health, error) {
	h, err := s.scorer.HealthCheck(ctx)
	if err != nil {
		// Health is polled; an offline service is expected, not an error.
		s.logger.Warn().Err(err).Msg("remote health check failed")
		return vitals.Health{}, err
	}
	return h, nil
}

func (s *Service) Calculate(ctx context.Context, sub vitals.Submission) (vitals.Result, error) {
	sub.PatientID = patient.NormalizeID(sub.PatientID)
	if err := ValidateSubmission(sub); err != nil {
		return vitals.Result{}, apperr.Wrap(apperr.KindInvalidRequest, "calculate", err)
	}

	res, err := s.scorer.Calculate(ctx, sub)
	if err != nil {
		s.logFailure(err, "calculate", sub.PatientID)
		return vitals.Result{}, err
	}
	s.logger.Info().
		Str("patient_id", sub.PatientID).
		Str("risk_category", string(res.RiskCategory)).
		Int("crisp_score", res.CrispScore).
		Msg("assessment scored")
	return res, nil
}

func (s *Service) History(ctx context.Context, patientID string, limit int) ([]vitals.HistoryRecord, error) {
	const op = "get history"
	patientID = patient.NormalizeID(patientID)
	if err := patient.ValidateID(patientID); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidRequest, op, err)
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, apperr.New(apperr.KindInvalidRequest, op, "limit must be between 1 and %d, got %d", MaxHistoryLimit, limit)
	}

	recs, err := s.scorer.History(ctx, patientID, limit)
	if err != nil {
		s.logFailure(err, op, patientID)
		return nil, err
	}
	return recs, nil
}

func (s *Service) Statistics(ctx context.Context, patientID string, days int) (vitals.Statistics, error) {
	const op = "get statistics"
	patientID = patient.NormalizeID(patientID)
	if err := patient.ValidateID(patientID); err != nil {
		return vitals.Statistics{}, apperr.Wrap(apperr.KindInvalidRequest, op, err)
	}
	if days < 1 || days > MaxStatisticsDays {
		return vitals.Statistics{}, apperr.New(apperr.KindInvalidRequest, op, "days must be between 1 and %d, got %d", MaxStatisticsDays, days)
	}

	st, err := s.scorer.Statistics(ctx, patientID, days)
	if err != nil {
		s.logFailure(err, op, patientID)
		return vitals.Statistics{}, err
	}
	return st, nil
}

// NotFound is routine for a patient with no assessments yet.
func (s *Service) logFailure(err error, op, patientID string) {
	evt := s.logger.Error()
	if apperr.KindOf(err) == apperr.KindNotFound {
		evt = s.logger.Info()
	}
	evt.Err(err).
		Str("op", op).
		Str("kind", string(apperr.KindOf(err))).
		Str("patient_id", patientID).
		Msg("remote call failed")
}

// ValidateSubmission checks the fields the host can judge without knowing
// the scoring rules.
func ValidateSubmission(sub vitals.Submission) error {
	if err := patient.ValidateID(sub.PatientID); err != nil {
		return err
	}
	if !sub.Consciousness.Valid() {
		return fmt.Errorf("consciousness must be one of A, V, P, U, got %q", sub.Consciousness)
	}
	switch {
	case sub.RespiratoryRate < 0:
		return fmt.Errorf("respiratory rate cannot be negative")
	case sub.OxygenSaturation < 0 || sub.OxygenSaturation > 100:
		return fmt.Errorf("oxygen saturation must be between 0 and 100")
	case sub.SystolicBP < 0:
		return fmt.Errorf("systolic blood pressure cannot be negative")
	case sub.Pulse < 0:
		return fmt.Errorf("pulse cannot be negative")
	case sub.Temperature < 0:
		return fmt.Errorf("temperature cannot be negative")
	}
	return nil
}
