package vitals

import (
	"fmt"
	"time"
)

// Consciousness is the ACVPU code sent to the scoring service.
type Consciousness string

const (
	Alert        Consciousness = "A"
	Voice        Consciousness = "V"
	Pain         Consciousness = "P"
	Unresponsive Consciousness = "U"
)

var validConsciousness = map[Consciousness]bool{
	Alert:        true,
	Voice:        true,
	Pain:         true,
	Unresponsive: true,
}

// Valid reports whether c is one of the four codes.
func (c Consciousness) Valid() bool {
	return validConsciousness[c]
}

// RiskCategory is the band returned by the scoring service.
type RiskCategory string

const (
	RiskLow       RiskCategory = "Low"
	RiskLowMedium RiskCategory = "Low-Medium"
	RiskMedium    RiskCategory = "Medium"
	RiskHigh      RiskCategory = "High"
)

var validRiskCategories = map[RiskCategory]bool{
	RiskLow:       true,
	RiskLowMedium: true,
	RiskMedium:    true,
	RiskHigh:      true,
}

func (r RiskCategory) Valid() bool {
	return validRiskCategories[r]
}

// Submission is one set of vital signs entered by a clinician.
type Submission struct {
	PatientID          string        `json:"patient_id"`
	RespiratoryRate    int           `json:"respiratory_rate"`
	OxygenSaturation   int           `json:"oxygen_saturation"`
	SystolicBP         int           `json:"systolic_bp"`
	Pulse              int           `json:"pulse"`
	Consciousness      Consciousness `json:"consciousness"`
	Temperature        float64       `json:"temperature"`
	SupplementalOxygen bool          `json:"supplemental_oxygen"`
}

// Result is the scoring service's answer for one Submission.
type Result struct {
	CrispScore          int            `json:"crisp_score"`
	FuzzyScore          float64        `json:"fuzzy_score"`
	RiskCategory        RiskCategory   `json:"risk_category"`
	RecommendedResponse string         `json:"recommended_response"`
	ParameterScores     map[string]int `json:"parameter_scores"`
}

// TotalKey is the aggregate entry some services include in ParameterScores.
const TotalKey = "total"

// Validate rejects results the shell cannot display faithfully.
func (r Result) Validate() error {
	if !r.RiskCategory.Valid() {
		return fmt.Errorf("unknown risk category %q", r.RiskCategory)
	}
	for name, score := range r.ParameterScores {
		if name == TotalKey {
			continue
		}
		if score < 0 || score > 3 {
			return fmt.Errorf("parameter %q score %d outside 0..3", name, score)
		}
	}
	return nil
}

// HistoryRecord is one past assessment.
type HistoryRecord struct {
	Timestamp           time.Time    `json:"timestamp"`
	CrispScore          int          `json:"crisp_score"`
	FuzzyScore          float64      `json:"fuzzy_score"`
	RiskCategory        RiskCategory `json:"risk_category"`
	RecommendedResponse string       `json:"recommended_response"`
}

func (h HistoryRecord) Validate() error {
	if !h.RiskCategory.Valid() {
		return fmt.Errorf("unknown risk category %q", h.RiskCategory)
	}
	return nil
}

// Statistics summarises a patient's recent assessments. Every field is
// optional.
type Statistics struct {
	AverageCrispScore *float64 `json:"average_crisp_score,omitempty"`
	MaxCrispScore     *int     `json:"max_crisp_score,omitempty"`
	Trend             *string  `json:"trend,omitempty"`
	AssessmentsCount  *int     `json:"assessments_count,omitempty"`
}

// Health is the remote service's health payload.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
