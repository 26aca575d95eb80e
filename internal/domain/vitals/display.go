package vitals

import (
	"sort"
	"strconv"
	"strings"
)

// Parameter keys as they appear in Result.ParameterScores.
const (
	ParamRespiratoryRate    = "respiratory_rate"
	ParamOxygenSaturation   = "oxygen_saturation"
	ParamSupplementalOxygen = "supplemental_oxygen"
	ParamSystolicBP         = "systolic_bp"
	ParamPulse              = "pulse"
	ParamConsciousness      = "consciousness"
	ParamTemperature        = "temperature"
)

// parameterOrder is the row order used for known parameters.
var parameterOrder = []string{
	ParamRespiratoryRate,
	ParamOxygenSaturation,
	ParamSupplementalOxygen,
	ParamSystolicBP,
	ParamPulse,
	ParamConsciousness,
	ParamTemperature,
}

var parameterNames = map[string]string{
	ParamRespiratoryRate:    "Respiratory Rate",
	ParamOxygenSaturation:   "Oxygen Saturation",
	ParamSupplementalOxygen: "Supplemental Oxygen",
	ParamSystolicBP:         "Systolic BP",
	ParamPulse:              "Pulse",
	ParamConsciousness:      "Consciousness",
	ParamTemperature:        "Temperature",
}

var parameterUnits = map[string]string{
	ParamRespiratoryRate:    "breaths/min",
	ParamOxygenSaturation:   "%",
	ParamSupplementalOxygen: "",
	ParamSystolicBP:         "mmHg",
	ParamPulse:              "bpm",
	ParamConsciousness:      "",
	ParamTemperature:        "°C",
}

var consciousnessLabels = map[Consciousness]string{
	Alert:        "Alert",
	Voice:        "Voice",
	Pain:         "Pain",
	Unresponsive: "Unresponsive",
}

// riskColors are the hex colours used for each band in charts and the TUI.
var riskColors = map[RiskCategory]string{
	RiskLow:       "#10b981",
	RiskLowMedium: "#f59e0b",
	RiskMedium:    "#f97316",
	RiskHigh:      "#ef4444",
}

// ParameterName returns the display name for key; unknown keys are title-cased.
func ParameterName(key string) string {
	if name, ok := parameterNames[key]; ok {
		return name
	}
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ParameterUnit returns the unit for key, or "" when it has none.
func ParameterUnit(key string) string {
	return parameterUnits[key]
}

// Label returns the long form of a consciousness code.
func (c Consciousness) Label() string {
	if l, ok := consciousnessLabels[c]; ok {
		return l
	}
	return string(c)
}

// Color returns the display colour for r.
func (r RiskCategory) Color() string {
	if c, ok := riskColors[r]; ok {
		return c
	}
	return "#6b7280"
}

// DisplayValue renders the submitted value behind a parameter key.
func (s Submission) DisplayValue(key string) string {
	switch key {
	case ParamRespiratoryRate:
		return strconv.Itoa(s.RespiratoryRate)
	case ParamOxygenSaturation:
		return strconv.Itoa(s.OxygenSaturation)
	case ParamSupplementalOxygen:
		if s.SupplementalOxygen {
			return "Yes"
		}
		return "No"
	case ParamSystolicBP:
		return strconv.Itoa(s.SystolicBP)
	case ParamPulse:
		return strconv.Itoa(s.Pulse)
	case ParamConsciousness:
		return s.Consciousness.Label()
	case ParamTemperature:
		return strconv.FormatFloat(s.Temperature, 'f', 1, 64)
	}
	return ""
}

// ParameterRow is one line of the parameter-score table.
type ParameterRow struct {
	Key   string
	Name  string
	Value string
	Unit  string
	Score int
}

// ParameterTable builds the parameter-score table for a result. Every key of
// scores except TotalKey yields exactly one row; known parameters come first
// in their clinical order, unknown keys follow alphabetically.
func ParameterTable(s Submission, scores map[string]int) []ParameterRow {
	rows := make([]ParameterRow, 0, len(scores))
	seen := make(map[string]bool, len(scores))

	add := func(key string) {
		rows = append(rows, ParameterRow{
			Key:   key,
			Name:  ParameterName(key),
			Value: s.DisplayValue(key),
			Unit:  ParameterUnit(key),
			Score: scores[key],
		})
		seen[key] = true
	}

	for _, key := range parameterOrder {
		if _, ok := scores[key]; ok {
			add(key)
		}
	}

	var extra []string
	for key := range scores {
		if key != TotalKey && !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		add(key)
	}
	return rows
}
