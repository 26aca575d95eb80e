package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/news2/shell/internal/platform/apperr"
)

// Store owns the persisted Settings record. All reads and writes go through a
// single mutex so concurrent bridge handlers cannot interleave a
// read-modify-write of the recent-patient list.
type Store struct {
	mu      sync.RWMutex
	fs      afero.Fs
	path    string
	current Settings
	logger  zerolog.Logger
}

// Open loads the record at path. A missing file is created with defaults. An
// unreadable or corrupt file is replaced in memory by defaults and logged; it
// never fails the caller.
func Open(fs afero.Fs, path string, logger zerolog.Logger) *Store {
	s := &Store{
		fs:     fs,
		path:   path,
		logger: logger.With().Str("component", "settings").Logger(),
	}

	loaded, err := s.read()
	switch {
	case err == nil:
		s.current = loaded
		return s
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info().Str("path", path).Msg("settings file not found; writing defaults")
	default:
		s.logger.Warn().Err(err).Str("path", path).Msg("settings file unreadable; using defaults")
		if rerr := fs.Rename(path, path+".corrupt"); rerr == nil {
			s.logger.Info().Str("backup", path+".corrupt").Msg("kept unreadable settings file")
		}
	}

	s.current = Defaults()
	if err := s.write(s.current); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("could not persist default settings")
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the current record.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// RemoteEndpoint returns the NEWS-2 service base URL.
func (s *Store) RemoteEndpoint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RemoteEndpoint
}

// Theme returns the colour theme.
func (s *Store) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Theme
}

// Window returns the last saved window size.
func (s *Store) Window() Geometry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Window
}

// RecentPatients returns a copy of the recent patient IDs, most recent first.
func (s *Store) RecentPatients() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.current.RecentPatients...)
}

// SetRemoteEndpoint trims and persists endpoint. It must be an absolute http
// or https URL.
func (s *Store) SetRemoteEndpoint(endpoint string) error {
	return s.Update(func(st *Settings) error {
		st.RemoteEndpoint = strings.TrimSpace(endpoint)
		return nil
	})
}

// SetTheme persists theme; only light and dark are accepted.
func (s *Store) SetTheme(theme Theme) error {
	return s.Update(func(st *Settings) error {
		st.Theme = theme
		return nil
	})
}

// SetWindow persists g, which must be at least MinWindowWidth by
// MinWindowHeight.
func (s *Store) SetWindow(g Geometry) error {
	return s.Update(func(st *Settings) error {
		st.Window = g
		return nil
	})
}

// Update applies fn to a copy of the record, validates the result and
// persists it. The in-memory record changes only after the write succeeded.
// Errors from fn are returned unchanged; validation failures are
// InvalidRequest and write failures PersistenceUnavailable.
func (s *Store) Update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return apperr.Wrap(apperr.KindInvalidRequest, "update settings", err)
	}
	if err := s.write(next); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("failed to persist settings")
		return apperr.Wrap(apperr.KindPersistenceUnavailable, "update settings", err)
	}
	s.current = next
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, error) {
	snap := s.Snapshot()
	switch key {
	case KeyRemoteEndpoint:
		return snap.RemoteEndpoint, nil
	case KeyWindow:
		return snap.Window, nil
	case KeyTheme:
		return snap.Theme, nil
	case KeyRecentPatients:
		return snap.RecentPatients, nil
	}
	return nil, apperr.New(apperr.KindInvalidRequest, "get setting", "unknown settings key %q", key)
}

// Set stores value under key and persists the whole record.
func (s *Store) Set(key string, value any) error {
	return s.Update(func(st *Settings) error {
		switch key {
		case KeyRemoteEndpoint:
			v, ok := value.(string)
			if !ok {
				return typeError(key, value)
			}
			st.RemoteEndpoint = strings.TrimSpace(v)
		case KeyWindow:
			v, ok := value.(Geometry)
			if !ok {
				return typeError(key, value)
			}
			st.Window = v
		case KeyTheme:
			switch v := value.(type) {
			case Theme:
				st.Theme = v
			case string:
				st.Theme = Theme(v)
			default:
				return typeError(key, value)
			}
		case KeyRecentPatients:
			v, ok := value.([]string)
			if !ok {
				return typeError(key, value)
			}
			st.RecentPatients = append([]string{}, v...)
		default:
			return apperr.New(apperr.KindInvalidRequest, "set setting", "unknown settings key %q", key)
		}
		return nil
	})
}

func typeError(key string, value any) error {
	return apperr.New(apperr.KindInvalidRequest, "set setting", "unexpected type %T for %q", value, key)
}

// read parses the backing file. Fields holding invalid values fall back to
// their defaults individually.
func (s *Store) read() (Settings, error) {
	v := viper.New()
	v.SetFs(s.fs)
	v.SetConfigFile(s.path)
	v.SetConfigType(configType(s.path))
	if err := v.ReadInConfig(); err != nil {
		return Settings{}, err
	}

	def := Defaults()
	out := Settings{
		RemoteEndpoint: v.GetString(KeyRemoteEndpoint),
		Window: Geometry{
			Width:  v.GetInt(KeyWindow + ".width"),
			Height: v.GetInt(KeyWindow + ".height"),
		},
		Theme:          Theme(v.GetString(KeyTheme)),
		RecentPatients: sanitizeRecent(v.GetStringSlice(KeyRecentPatients)),
	}

	if err := ValidateEndpoint(out.RemoteEndpoint); err != nil {
		s.logger.Warn().Err(err).Msg("stored endpoint invalid; using default")
		out.RemoteEndpoint = def.RemoteEndpoint
	}
	if out.Window.Width < MinWindowWidth || out.Window.Height < MinWindowHeight {
		out.Window = def.Window
	}
	if _, err := ParseTheme(string(out.Theme)); err != nil {
		s.logger.Warn().Err(err).Msg("stored theme invalid; using default")
		out.Theme = def.Theme
	}
	return out, nil
}

// write serialises the complete record to a sibling temp file and renames it
// over the target, so a reader never sees a partial record.
func (s *Store) write(st Settings) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	v := viper.New()
	v.SetFs(s.fs)
	v.Set(KeyRemoteEndpoint, st.RemoteEndpoint)
	v.Set(KeyWindow+".width", st.Window.Width)
	v.Set(KeyWindow+".height", st.Window.Height)
	v.Set(KeyTheme, string(st.Theme))
	v.Set(KeyRecentPatients, st.RecentPatients)

	tmp := tempPath(s.path)
	if err := v.WriteConfigAs(tmp); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

func sanitizeRecent(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == MaxRecentPatients {
			break
		}
	}
	return out
}

func configType(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "json"
	}
	return ext
}

// tempPath keeps the extension so viper can infer the encoding.
func tempPath(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".json"
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(filepath.Dir(path), "."+base+".tmp"+ext)
}
