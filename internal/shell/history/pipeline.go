// Package history joins a patient's assessment history and statistics into
// one render: a table, a statistics panel and a chart specification. Both
// remote reads run concurrently and both must settle before anything is
// rendered.
package history

import (
	"context"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/shell/task"
)

const (
	HistoryLimit   = 20
	StatisticsDays = 30
)

// Source is the bridge as seen by the pipeline.
type Source interface {
	History(ctx context.Context, patientID string, limit int) ([]vitals.HistoryRecord, error)
	Statistics(ctx context.Context, patientID string, days int) (vitals.Statistics, error)
}

// Query is one lookup. Its ticket decides whether the result may still be
// applied.
type Query struct {
	PatientID string
	Ticket    task.Ticket
}

type Pipeline struct {
	src     Source
	tracker *task.Tracker
}

func NewPipeline(src Source, tracker *task.Tracker) *Pipeline {
	return &Pipeline{src: src, tracker: tracker}
}

// Begin starts a lookup for patientID, superseding any earlier one.
func (p *Pipeline) Begin(patientID string) Query {
	return Query{PatientID: patientID, Ticket: p.tracker.Begin(task.SlotHistory)}
}

// Current reports whether q is still the active lookup.
func (p *Pipeline) Current(q Query) bool {
	return p.tracker.Current(q.Ticket)
}

// Abandon drops the active lookup; its result will not be current.
func (p *Pipeline) Abandon() {
	p.tracker.Abandon(task.SlotHistory)
}

// Load fetches history and statistics concurrently and waits for both. A
// failure on either side yields one combined error and no render.
func (p *Pipeline) Load(ctx context.Context, q Query) (*Render, error) {
	var (
		g        errgroup.Group
		records  []vitals.HistoryRecord
		stats    vitals.Statistics
		histErr  error
		statsErr error
	)

	// Neither call cancels the other; the join waits for both outcomes.
	g.Go(func() error {
		records, histErr = p.src.History(ctx, q.PatientID, HistoryLimit)
		return nil
	})
	g.Go(func() error {
		stats, statsErr = p.src.Statistics(ctx, q.PatientID, StatisticsDays)
		return nil
	})
	_ = g.Wait()

	if err := multierr.Combine(histErr, statsErr); err != nil {
		return nil, err
	}
	return Build(q.PatientID, records, stats), nil
}
