package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/news2/shell/internal/config"
	"github.com/news2/shell/internal/domain/navigation"
	"github.com/news2/shell/internal/domain/patient"
	"github.com/news2/shell/internal/host"
	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/auth"
	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/shell/bridge"
	"github.com/news2/shell/internal/shell/history"
	"github.com/news2/shell/internal/shell/task"
	"github.com/news2/shell/internal/shell/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "news2-shell",
		Short:        "NEWS-2 assessment desktop shell",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(uiCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(menuCmd())
	rootCmd.AddCommand(reportCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

// fileLogger sends logs to the log file so the terminal UI owns the screen.
func fileLogger(fs afero.Fs, cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	path := cfg.LogFile()
	if err := fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	logger := zerolog.New(f).With().Timestamp().Logger().Level(cfg.Level())
	return logger, f, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the host bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stdout)

			h, err := host.New(cfg, afero.NewOsFs(), logger)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			return h.Serve(ctx)
		},
	}
}

func uiCmd() *cobra.Command {
	var bridgeURL, exportDir string
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal UI against a running host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fs := afero.NewOsFs()
			logger, closer, err := fileLogger(fs, cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			client, err := bridgeClient(fs, cfg, bridgeURL, logger)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			if err := client.Ping(ctx); err != nil {
				return fmt.Errorf("host not reachable: %w", err)
			}
			return tui.Run(ctx, client, tui.Config{Logger: logger, Fs: fs, ExportDir: exportDir})
		},
	}
	cmd.Flags().StringVar(&bridgeURL, "bridge", "", "bridge base URL (default http://BRIDGE_ADDR)")
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory for history exports")
	return cmd
}

func runCmd() *cobra.Command {
	var exportDir string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the host and the terminal UI in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fs := afero.NewOsFs()
			logger, closer, err := fileLogger(fs, cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			h, err := host.New(cfg, fs, logger)
			if err != nil {
				return err
			}
			if err := h.Listen(); err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			hostCtx, stopHost := context.WithCancel(ctx)
			served := make(chan error, 1)
			go func() { served <- h.Serve(hostCtx) }()

			client := bridge.New(h.URL(), h.Token(), bridge.DefaultTimeout, logger)
			uiErr := tui.Run(ctx, client, tui.Config{Logger: logger, Fs: fs, ExportDir: exportDir})

			stopHost()
			return multierr.Combine(uiErr, <-served)
		},
	}
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "directory for history exports")
	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change persisted settings",
	}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			keys := settings.Keys
			if len(args) == 1 {
				keys = args
			}
			return printSettings(cmd.OutOrStdout(), store, keys)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long:  "Keys: " + strings.Join(settings.Keys, ", ") + ". window takes WIDTHxHEIGHT, recent_patients a comma-separated list.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			value, err := settings.ParseValue(args[0], args[1])
			if err != nil {
				return err
			}
			if err := store.Set(args[0], value); err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), store, args[:1])
		},
	}

	cmd.AddCommand(getCmd, setCmd)
	return cmd
}

func openStore() (*settings.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, os.Stderr)
	return settings.Open(afero.NewOsFs(), cfg.SettingsFile, logger), nil
}

func printSettings(w io.Writer, store *settings.Store, keys []string) error {
	for _, k := range keys {
		v, err := store.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s = %s\n", k, formatValue(v))
	}
	return nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case []string:
		return strings.Join(v, ",")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func menuCmd() *cobra.Command {
	var bridgeURL string
	events := make([]string, 0, len(navigation.MenuEvents))
	for _, e := range navigation.MenuEvents {
		events = append(events, string(e))
	}
	sort.Strings(events)

	cmd := &cobra.Command{
		Use:       "menu <event>",
		Short:     "Send a menu event to every connected UI",
		Long:      "Events: " + strings.Join(events, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: events,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := navigation.ParseMenuEvent(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr)
			client, err := bridgeClient(afero.NewOsFs(), cfg, bridgeURL, logger)
			if err != nil {
				return err
			}
			resp, err := client.Navigate(cmd.Context(), ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s delivered to %d UI(s)\n", resp.Event, resp.Delivered)
			return nil
		},
	}
	cmd.Flags().StringVar(&bridgeURL, "bridge", "", "bridge base URL (default http://BRIDGE_ADDR)")
	return cmd
}

func reportCmd() *cobra.Command {
	var bridgeURL, outDir string
	cmd := &cobra.Command{
		Use:   "report <patient-id>",
		Short: "Export a patient's history workbook and trend chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := patient.NormalizeID(args[0])
			if err := patient.ValidateID(id); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr)
			fs := afero.NewOsFs()
			client, err := bridgeClient(fs, cfg, bridgeURL, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			p := history.NewPipeline(client, task.NewTracker())
			r, err := p.Load(ctx, p.Begin(id))
			if err != nil {
				if errors.Is(err, apperr.NotFound) {
					return fmt.Errorf("no history found for %s", id)
				}
				return err
			}
			if r.Empty {
				return fmt.Errorf("no history found for %s", id)
			}

			theme, err := client.GetTheme(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("using light theme for chart")
				theme = settings.ThemeLight
			}
			paths, err := tui.Export(fs, outDir, r, theme)
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&bridgeURL, "bridge", "", "bridge base URL (default http://BRIDGE_ADDR)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

// bridgeClient connects to a separately started host, taking the session
// token from BRIDGE_TOKEN or the token file the host wrote.
func bridgeClient(fs afero.Fs, cfg *config.Config, baseURL string, logger zerolog.Logger) (*bridge.Client, error) {
	if baseURL == "" {
		baseURL = "http://" + cfg.BridgeAddr
	}
	token, err := resolveToken(fs, cfg)
	if err != nil {
		return nil, err
	}
	return bridge.New(baseURL, token, bridge.DefaultTimeout, logger), nil
}

func resolveToken(fs afero.Fs, cfg *config.Config) (string, error) {
	if t := strings.TrimSpace(cfg.BridgeToken); t != "" {
		return t, nil
	}
	token, err := auth.ReadTokenFile(fs, auth.TokenFilePath(cfg.SettingsFile))
	if err != nil {
		return "", fmt.Errorf("no bridge token (is the host running?): %w", err)
	}
	return token, nil
}
