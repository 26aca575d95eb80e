package history

import (
	"strconv"
	"time"

	"github.com/news2/shell/internal/domain/vitals"
)

// Placeholder stands in for an absent statistic.
const Placeholder = "--"

const (
	rowTimeLayout   = "2006-01-02 15:04"
	chartDateLayout = "Jan 2"
	chartTimeLayout = "Jan 2 15:04"
	yHeadroom       = 2
)

// Row is one table line, in the order received (newest first).
type Row struct {
	Timestamp  time.Time
	Time       string
	CrispScore int
	FuzzyScore string
	Risk       vitals.RiskCategory
	RiskColor  string
	Response   string
}

// StatsView holds display strings for the statistics panel.
type StatsView struct {
	Average     string
	Max         string
	Trend       string
	Assessments string
}

// ChartSpec is what the chart renderer needs: ascending time, two series and
// the y range.
type ChartSpec struct {
	Times  []time.Time
	Labels []string
	Crisp  []float64
	Fuzzy  []float64
	YMin   float64
	YMax   float64
}

// Render is the complete output of one lookup. When Empty is set the
// patient has no assessments and only the no-data state is shown.
type Render struct {
	PatientID string
	Empty     bool
	Rows      []Row
	Stats     StatsView
	Chart     ChartSpec
}

// Build derives the display model from records (newest first) and stats.
func Build(patientID string, records []vitals.HistoryRecord, stats vitals.Statistics) *Render {
	if len(records) == 0 {
		return &Render{PatientID: patientID, Empty: true}
	}

	r := &Render{
		PatientID: patientID,
		Rows:      make([]Row, 0, len(records)),
		Stats:     FormatStats(stats),
	}
	for _, rec := range records {
		r.Rows = append(r.Rows, Row{
			Timestamp:  rec.Timestamp,
			Time:       rec.Timestamp.Local().Format(rowTimeLayout),
			CrispScore: rec.CrispScore,
			FuzzyScore: strconv.FormatFloat(rec.FuzzyScore, 'f', 1, 64),
			Risk:       rec.RiskCategory,
			RiskColor:  rec.RiskCategory.Color(),
			Response:   rec.RecommendedResponse,
		})
	}
	r.Chart = buildChart(records)
	return r
}

func buildChart(records []vitals.HistoryRecord) ChartSpec {
	n := len(records)
	spec := ChartSpec{
		Times:  make([]time.Time, n),
		Labels: make([]string, n),
		Crisp:  make([]float64, n),
		Fuzzy:  make([]float64, n),
	}

	layout := chartDateLayout
	if sameDay(records) {
		layout = chartTimeLayout
	}

	max := 0.0
	for i, rec := range records {
		j := n - 1 - i
		spec.Times[j] = rec.Timestamp
		spec.Labels[j] = rec.Timestamp.Local().Format(layout)
		spec.Crisp[j] = float64(rec.CrispScore)
		spec.Fuzzy[j] = rec.FuzzyScore
		if spec.Crisp[j] > max {
			max = spec.Crisp[j]
		}
		if spec.Fuzzy[j] > max {
			max = spec.Fuzzy[j]
		}
	}
	spec.YMin = 0
	spec.YMax = max + yHeadroom
	return spec
}

// sameDay reports whether more than one record falls on a single calendar
// day, in which case date-only labels would repeat.
func sameDay(records []vitals.HistoryRecord) bool {
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		d := rec.Timestamp.Local().Format("2006-01-02")
		if seen[d] {
			return true
		}
		seen[d] = true
	}
	return false
}

// FormatStats applies the placeholder to absent fields. A present zero is
// shown as a value.
func FormatStats(s vitals.Statistics) StatsView {
	v := StatsView{
		Average:     Placeholder,
		Max:         Placeholder,
		Trend:       Placeholder,
		Assessments: Placeholder,
	}
	if s.AverageCrispScore != nil {
		v.Average = strconv.FormatFloat(*s.AverageCrispScore, 'f', 1, 64)
	}
	if s.MaxCrispScore != nil {
		v.Max = strconv.Itoa(*s.MaxCrispScore)
	}
	if s.Trend != nil && *s.Trend != "" {
		v.Trend = *s.Trend
	}
	if s.AssessmentsCount != nil {
		v.Assessments = strconv.Itoa(*s.AssessmentsCount)
	}
	return v
}
