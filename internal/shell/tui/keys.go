package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit          key.Binding
	Dashboard     key.Binding
	Assessment    key.Binding
	History       key.Binding
	Settings      key.Binding
	NewAssessment key.Binding
	Next          key.Binding
	Prev          key.Binding
	Submit        key.Binding
	Theme         key.Binding
	Retry         key.Binding
	TestConn      key.Binding
	Export        key.Binding
	RecentUp      key.Binding
	RecentDown    key.Binding
	OpenRecent    key.Binding
	Dismiss       key.Binding
	TableUp       key.Binding
	TableDown     key.Binding
	ToggleChoice  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:          key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Dashboard:     key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "dashboard")),
		Assessment:    key.NewBinding(key.WithKeys("f2"), key.WithHelp("f2", "assessment")),
		History:       key.NewBinding(key.WithKeys("f3"), key.WithHelp("f3", "history")),
		Settings:      key.NewBinding(key.WithKeys("f4"), key.WithHelp("f4", "settings")),
		NewAssessment: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new assessment")),
		Next:          key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Prev:          key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
		Submit:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Theme:         key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "toggle theme")),
		Retry:         key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry connection")),
		TestConn:      key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "test connection")),
		Export:        key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export")),
		RecentUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "previous patient")),
		RecentDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "next patient")),
		OpenRecent:    key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open patient")),
		Dismiss:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		TableUp:       key.NewBinding(key.WithKeys("up")),
		TableDown:     key.NewBinding(key.WithKeys("down")),
		ToggleChoice:  key.NewBinding(key.WithKeys("left", "right", " ")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dashboard, k.Assessment, k.History, k.Settings, k.Theme, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dashboard, k.Assessment, k.History, k.Settings},
		{k.Next, k.Prev, k.Submit, k.Dismiss},
		{k.NewAssessment, k.Theme, k.Retry, k.TestConn},
		{k.RecentUp, k.RecentDown, k.OpenRecent, k.Export, k.Quit},
	}
}
