// Package view is the navigation state machine of the UI surface. Exactly one
// View is active. Dispatch is the only mutator, and the entry work each
// transition requires is returned as data for the caller to perform.
package view

import (
	"fmt"
	"strings"

	"github.com/news2/shell/internal/domain/vitals"
)

type View int

const (
	Dashboard View = iota
	Assessment
	History
	Settings
)

// All lists the views in menu order.
var All = []View{Dashboard, Assessment, History, Settings}

var viewNames = map[View]string{
	Dashboard:  "dashboard",
	Assessment: "assessment",
	History:    "history",
	Settings:   "settings",
}

func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return fmt.Sprintf("View(%d)", int(v))
}

func (v View) Valid() bool {
	_, ok := viewNames[v]
	return ok
}

// Title is the heading shown for v.
func (v View) Title() string {
	name := v.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

func ParseView(s string) (View, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for v, name := range viewNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

type EventKind int

const (
	EventNavigate EventKind = iota + 1
	EventNewAssessmentRequested
	EventSettingsRequested
)

// Event is the only input to the machine.
type Event struct {
	Kind   EventKind
	Target View
}

func Navigate(target View) Event {
	return Event{Kind: EventNavigate, Target: target}
}

// NewAssessmentRequested comes from the host menu and always lands on a
// blank assessment form.
func NewAssessmentRequested() Event {
	return Event{Kind: EventNewAssessmentRequested}
}

func SettingsRequested() Event {
	return Event{Kind: EventSettingsRequested}
}

// Prefill is a quick-submit carried over to the assessment form.
type Prefill struct {
	Submission vitals.Submission
	Result     vitals.Result
}

// Entry describes a completed transition and the work it requires.
type Entry struct {
	From View
	To   View

	// LoadHistoryFor is set when History is entered with a current patient:
	// populate the search field with it and run the history pipeline.
	LoadHistoryFor string
	// Prefill is set when Assessment is entered after a quick submit.
	Prefill *Prefill
	// ResetForm clears the assessment form.
	ResetForm bool
	// LeftHistory means any in-flight history query must be abandoned.
	LeftHistory bool
}

type Machine struct {
	current        View
	currentPatient string
	staged         *Prefill
}

// NewMachine starts on Dashboard.
func NewMachine() *Machine {
	return &Machine{current: Dashboard}
}

func (m *Machine) Current() View {
	return m.current
}

// SetCurrentPatient records the patient carried into History on next entry.
func (m *Machine) SetCurrentPatient(id string) {
	m.currentPatient = id
}

func (m *Machine) CurrentPatient() string {
	return m.currentPatient
}

// StagePrefill holds p until Assessment is next entered.
func (m *Machine) StagePrefill(p Prefill) {
	m.staged = &p
}

// Dispatch applies ev. Navigating to the active view re-runs its entry
// actions. An invalid event leaves the state unchanged.
func (m *Machine) Dispatch(ev Event) (Entry, error) {
	var target View
	switch ev.Kind {
	case EventNavigate:
		if !ev.Target.Valid() {
			return Entry{}, fmt.Errorf("navigate: %w", errUnknownView(ev.Target))
		}
		target = ev.Target
	case EventNewAssessmentRequested:
		target = Assessment
	case EventSettingsRequested:
		target = Settings
	default:
		return Entry{}, fmt.Errorf("unknown event kind %d", ev.Kind)
	}

	entry := Entry{
		From:        m.current,
		To:          target,
		LeftHistory: m.current == History && target != History,
	}

	switch target {
	case History:
		entry.LoadHistoryFor = m.currentPatient
	case Assessment:
		if ev.Kind == EventNewAssessmentRequested {
			entry.ResetForm = true
			m.staged = nil
		} else if m.staged != nil {
			entry.Prefill = m.staged
			m.staged = nil
		}
	}

	m.current = target
	return entry, nil
}

func errUnknownView(v View) error {
	return fmt.Errorf("unknown view %d", int(v))
}
