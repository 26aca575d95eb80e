package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const appDir = "news2-shell"

type Config struct {
	Env           string        `mapstructure:"ENV"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	BridgeAddr    string        `mapstructure:"BRIDGE_ADDR"`
	SettingsFile  string        `mapstructure:"SETTINGS_FILE"`
	RemoteTimeout time.Duration `mapstructure:"REMOTE_TIMEOUT"`
	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	BridgeToken   string        `mapstructure:"BRIDGE_TOKEN"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BRIDGE_ADDR", "127.0.0.1:8765")
	v.SetDefault("REMOTE_TIMEOUT", "10s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{"ENV", "LOG_LEVEL", "BRIDGE_ADDR", "SETTINGS_FILE", "REMOTE_TIMEOUT", "SESSION_SECRET", "BRIDGE_TOKEN"} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.SettingsFile == "" {
		path, err := DefaultSettingsFile()
		if err != nil {
			return nil, err
		}
		cfg.SettingsFile = path
	}

	return cfg, nil
}

// DefaultSettingsFile is settings.json in the user's configuration directory.
func DefaultSettingsFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, appDir, "settings.json"), nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the parsed LOG_LEVEL, falling back to debug in development
// and info otherwise.
func (c *Config) Level() zerolog.Level {
	if lvl, err := zerolog.ParseLevel(c.LogLevel); err == nil && c.LogLevel != "" {
		return lvl
	}
	if c.IsDev() {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// LogFile is where the terminal UI writes its log, next to the settings file.
func (c *Config) LogFile() string {
	return filepath.Join(filepath.Dir(c.SettingsFile), "news2-shell.log")
}

// Validate checks that the configuration is safe to run. The bridge must
// only ever listen on a loopback interface.
func (c *Config) Validate() error {
	host, _, err := net.SplitHostPort(c.BridgeAddr)
	if err != nil {
		return fmt.Errorf("BRIDGE_ADDR %q: %w", c.BridgeAddr, err)
	}
	if !isLoopback(host) {
		return fmt.Errorf("BRIDGE_ADDR must be a loopback address, got %q", host)
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive, got %s", c.RemoteTimeout)
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes, got %d", len(c.SessionSecret))
	}
	if c.SettingsFile == "" {
		return fmt.Errorf("SETTINGS_FILE is required")
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
