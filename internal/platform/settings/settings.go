// Package settings is the persisted configuration store owned by the host
// process: remote endpoint, window geometry, theme and the recent-patient
// list. Every mutation writes the complete record before it becomes visible.
package settings

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Persisted keys.
const (
	KeyRemoteEndpoint = "remote_endpoint"
	KeyWindow         = "window"
	KeyTheme          = "theme"
	KeyRecentPatients = "recent_patients"
)

// Keys lists every key accepted by Get and Set.
var Keys = []string{KeyRemoteEndpoint, KeyWindow, KeyTheme, KeyRecentPatients}

const (
	DefaultRemoteEndpoint = "http://localhost:8000"
	DefaultWindowWidth    = 1200
	DefaultWindowHeight   = 800
	MinWindowWidth        = 800
	MinWindowHeight       = 600
	MaxRecentPatients     = 10
)

// Theme is the UI colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	}
	return "", fmt.Errorf("theme must be %q or %q, got %q", ThemeLight, ThemeDark, s)
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Geometry is the main window size.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// ParseGeometry reads "WIDTHxHEIGHT".
func ParseGeometry(s string) (Geometry, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Geometry{}, fmt.Errorf("window must look like 1200x800, got %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return Geometry{}, fmt.Errorf("invalid window width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return Geometry{}, fmt.Errorf("invalid window height %q", h)
	}
	return Geometry{Width: width, Height: height}, nil
}

// Settings is the single persisted record.
type Settings struct {
	RemoteEndpoint string   `json:"remote_endpoint"`
	Window         Geometry `json:"window"`
	Theme          Theme    `json:"theme"`
	RecentPatients []string `json:"recent_patients"`
}

// Defaults returns the first-run record.
func Defaults() Settings {
	return Settings{
		RemoteEndpoint: DefaultRemoteEndpoint,
		Window:         Geometry{Width: DefaultWindowWidth, Height: DefaultWindowHeight},
		Theme:          ThemeLight,
		RecentPatients: []string{},
	}
}

func (s Settings) clone() Settings {
	out := s
	out.RecentPatients = append([]string{}, s.RecentPatients...)
	return out
}

// Validate checks every field of the record.
func (s Settings) Validate() error {
	if err := ValidateEndpoint(s.RemoteEndpoint); err != nil {
		return err
	}
	if s.Window.Width < MinWindowWidth || s.Window.Height < MinWindowHeight {
		return fmt.Errorf("window must be at least %dx%d, got %s", MinWindowWidth, MinWindowHeight, s.Window)
	}
	if _, err := ParseTheme(string(s.Theme)); err != nil {
		return err
	}
	if len(s.RecentPatients) > MaxRecentPatients {
		return fmt.Errorf("recent patients holds at most %d entries, got %d", MaxRecentPatients, len(s.RecentPatients))
	}
	seen := make(map[string]bool, len(s.RecentPatients))
	for _, id := range s.RecentPatients {
		if id == "" {
			return fmt.Errorf("recent patients contains an empty id")
		}
		if seen[id] {
			return fmt.Errorf("recent patients contains %q twice", id)
		}
		seen[id] = true
	}
	return nil
}

// ValidateEndpoint requires an absolute http or https URL.
func ValidateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint %q has no host", raw)
	}
	return nil
}

// ParseValue converts a command-line string into the value type Set expects
// for key.
func ParseValue(key, raw string) (any, error) {
	switch key {
	case KeyRemoteEndpoint:
		return strings.TrimSpace(raw), nil
	case KeyTheme:
		return ParseTheme(raw)
	case KeyWindow:
		return ParseGeometry(raw)
	case KeyRecentPatients:
		if strings.TrimSpace(raw) == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
	return nil, fmt.Errorf("unknown settings key %q", key)
}
