package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/news2/shell/internal/config"
	"github.com/news2/shell/internal/platform/auth"
	"github.com/news2/shell/internal/platform/settings"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"serve", "ui", "run", "settings", "menu", "report"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (err=%v)", name, err)
		}
	}
	if cmd, _, err := root.Find([]string{"settings", "set"}); err != nil || cmd.Name() != "set" {
		t.Errorf("settings set not registered (err=%v)", err)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"http://localhost:8000", "http://localhost:8000"},
		{settings.ThemeDark, "dark"},
		{settings.Geometry{Width: 1200, Height: 800}, "1200x800"},
		{[]string{"PT-001", "PT-002"}, "PT-001,PT-002"},
		{[]string{}, ""},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrintSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := settings.Open(fs, "/cfg/settings.json", zerolog.Nop())
	if err := store.Set(settings.KeyTheme, settings.ThemeDark); err != nil {
		t.Fatalf("set theme: %v", err)
	}

	var buf bytes.Buffer
	if err := printSettings(&buf, store, settings.Keys); err != nil {
		t.Fatalf("printSettings: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "theme = dark\n") {
		t.Errorf("missing theme line in %q", out)
	}
	if !strings.Contains(out, "window = 1200x800\n") {
		t.Errorf("missing window line in %q", out)
	}

	if err := printSettings(&buf, store, []string{"font_size"}); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestResolveToken(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := &config.Config{SettingsFile: "/cfg/settings.json"}

	if _, err := resolveToken(fs, cfg); err == nil {
		t.Fatal("expected error without token file")
	}

	if err := auth.WriteTokenFile(fs, auth.TokenFilePath(cfg.SettingsFile), "from-file"); err != nil {
		t.Fatalf("write token: %v", err)
	}
	if got, err := resolveToken(fs, cfg); err != nil || got != "from-file" {
		t.Errorf("resolveToken = %q, %v; want from-file", got, err)
	}

	cfg.BridgeToken = "from-env"
	if got, _ := resolveToken(fs, cfg); got != "from-env" {
		t.Errorf("BRIDGE_TOKEN should win, got %q", got)
	}
}

func TestBridgeClient_DefaultURL(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := &config.Config{SettingsFile: "/cfg/settings.json", BridgeAddr: "127.0.0.1:8765", BridgeToken: "tok"}
	if _, err := bridgeClient(fs, cfg, "", zerolog.Nop()); err != nil {
		t.Fatalf("bridgeClient: %v", err)
	}
}

func TestFileLogger(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := &config.Config{SettingsFile: "/cfg/settings.json", LogLevel: "info"}

	logger, closer, err := fileLogger(fs, cfg)
	if err != nil {
		t.Fatalf("fileLogger: %v", err)
	}
	logger.Info().Msg("hello")
	closer.Close()

	b, err := afero.ReadFile(fs, cfg.LogFile())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"message":"hello"`) {
		t.Errorf("log file = %q", b)
	}
}
