package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/news2/shell/internal/domain/vitals"
)

type fieldKey int

const (
	fieldPatientID fieldKey = iota
	fieldRespiratoryRate
	fieldOxygenSaturation
	fieldSystolicBP
	fieldPulse
	fieldConsciousness
	fieldTemperature
	fieldSupplementalOxygen
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldPatientID:          "Patient ID",
	fieldRespiratoryRate:    "Respiratory Rate (breaths/min)",
	fieldOxygenSaturation:   "Oxygen Saturation (%)",
	fieldSystolicBP:         "Systolic BP (mmHg)",
	fieldPulse:              "Pulse (bpm)",
	fieldConsciousness:      "Consciousness (A/V/P/U)",
	fieldTemperature:        "Temperature (°C)",
	fieldSupplementalOxygen: "Supplemental Oxygen (y/n)",
}

var fieldDefaults = [fieldCount]string{
	fieldConsciousness:      string(vitals.Alert),
	fieldSupplementalOxygen: "n",
}

// vitalsForm is the vital-signs entry form shared by the dashboard's quick
// assessment and the full Assessment view.
type vitalsForm struct {
	inputs [fieldCount]textinput.Model
	focus  fieldKey
}

func newVitalsForm() vitalsForm {
	var f vitalsForm
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 32
		switch fieldKey(i) {
		case fieldPatientID:
			in.Placeholder = "PT-001"
		case fieldConsciousness, fieldSupplementalOxygen:
			in.CharLimit = 1
		}
		f.inputs[i] = in
	}
	f.Reset()
	return f
}

// Reset clears every field back to its default and focuses the first one.
func (f *vitalsForm) Reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue(fieldDefaults[i])
		f.inputs[i].Blur()
	}
	f.focus = fieldPatientID
}

func (f *vitalsForm) Focus() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	return f.inputs[f.focus].Focus()
}

func (f *vitalsForm) Blur() {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

func (f *vitalsForm) Next() tea.Cmd {
	f.focus = (f.focus + 1) % fieldCount
	return f.Focus()
}

func (f *vitalsForm) Prev() tea.Cmd {
	f.focus = (f.focus + fieldCount - 1) % fieldCount
	return f.Focus()
}

func (f *vitalsForm) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// Fill loads sub into the form, as after a quick submission.
func (f *vitalsForm) Fill(sub vitals.Submission) {
	f.inputs[fieldPatientID].SetValue(sub.PatientID)
	f.inputs[fieldRespiratoryRate].SetValue(strconv.Itoa(sub.RespiratoryRate))
	f.inputs[fieldOxygenSaturation].SetValue(strconv.Itoa(sub.OxygenSaturation))
	f.inputs[fieldSystolicBP].SetValue(strconv.Itoa(sub.SystolicBP))
	f.inputs[fieldPulse].SetValue(strconv.Itoa(sub.Pulse))
	f.inputs[fieldConsciousness].SetValue(string(sub.Consciousness))
	f.inputs[fieldTemperature].SetValue(strconv.FormatFloat(sub.Temperature, 'f', -1, 64))
	if sub.SupplementalOxygen {
		f.inputs[fieldSupplementalOxygen].SetValue("y")
	} else {
		f.inputs[fieldSupplementalOxygen].SetValue("n")
	}
}

// Submission parses the form. The patient id is passed through untouched;
// the controller normalizes and validates it.
func (f *vitalsForm) Submission() (vitals.Submission, error) {
	sub := vitals.Submission{PatientID: f.value(fieldPatientID)}

	ints := []struct {
		key fieldKey
		dst *int
	}{
		{fieldRespiratoryRate, &sub.RespiratoryRate},
		{fieldOxygenSaturation, &sub.OxygenSaturation},
		{fieldSystolicBP, &sub.SystolicBP},
		{fieldPulse, &sub.Pulse},
	}
	for _, field := range ints {
		n, err := strconv.Atoi(f.value(field.key))
		if err != nil {
			return sub, fmt.Errorf("%s must be a whole number", fieldLabels[field.key])
		}
		*field.dst = n
	}

	temp, err := strconv.ParseFloat(f.value(fieldTemperature), 64)
	if err != nil {
		return sub, fmt.Errorf("%s must be a number", fieldLabels[fieldTemperature])
	}
	sub.Temperature = temp

	sub.Consciousness = vitals.Consciousness(strings.ToUpper(f.value(fieldConsciousness)))

	switch strings.ToLower(f.value(fieldSupplementalOxygen)) {
	case "y":
		sub.SupplementalOxygen = true
	case "n", "":
	default:
		return sub, fmt.Errorf("%s must be y or n", fieldLabels[fieldSupplementalOxygen])
	}
	return sub, nil
}

func (f *vitalsForm) value(k fieldKey) string {
	return strings.TrimSpace(f.inputs[k].Value())
}

func (f *vitalsForm) View(s styles) string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := s.label.Render(fmt.Sprintf("%-32s", fieldLabels[i]))
		if fieldKey(i) == f.focus && in.Focused() {
			label = s.focused.Render(fmt.Sprintf("%-32s", fieldLabels[i]))
		}
		b.WriteString(label + " " + in.View() + "\n")
	}
	return b.String()
}
