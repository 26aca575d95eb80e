// Package host is the trusted side of the shell. It owns the settings store,
// the recency cache and the only outbound client, and serves them to UI
// surfaces over a loopback bridge guarded by a session token.
package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/news2/shell/internal/config"
	"github.com/news2/shell/internal/domain/assessment"
	"github.com/news2/shell/internal/domain/navigation"
	"github.com/news2/shell/internal/domain/patient"
	"github.com/news2/shell/internal/domain/preferences"
	"github.com/news2/shell/internal/platform/auth"
	"github.com/news2/shell/internal/platform/middleware"
	"github.com/news2/shell/internal/platform/scoring"
	"github.com/news2/shell/internal/platform/settings"
	"github.com/news2/shell/internal/platform/websocket"
)

// Version is reported by /healthz.
var Version = "0.1.0"

const bodyLimit = "64K"

// Host wires the bridge. Create it with New, then Listen and Serve.
type Host struct {
	Echo     *echo.Echo
	Store    *settings.Store
	Hub      *websocket.Hub
	Session  *auth.Session
	Recent   *patient.Recent
	Assessor *assessment.Service

	cfg       *config.Config
	fs        afero.Fs
	logger    zerolog.Logger
	listener  net.Listener
	token     string
	tokenPath string
}

func New(cfg *config.Config, fs afero.Fs, logger zerolog.Logger) (*Host, error) {
	store := settings.Open(fs, cfg.SettingsFile, logger)

	session, err := auth.NewSession([]byte(cfg.SessionSecret), 0)
	if err != nil {
		return nil, err
	}

	h := &Host{
		Store:     store,
		Hub:       websocket.NewHub(logger),
		Session:   session,
		Recent:    patient.NewRecent(store),
		Assessor:  assessment.NewService(scoring.NewClient(store, cfg.RemoteTimeout, logger), logger),
		cfg:       cfg,
		fs:        fs,
		logger:    logger,
		tokenPath: auth.TokenFilePath(cfg.SettingsFile),
	}
	h.Echo = h.routes()
	return h, nil
}

func (h *Host) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(h.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(h.logger))
	e.Use(middleware.LoopbackOnly())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(bodyLimit))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": Version,
		})
	})

	bridge := e.Group("/bridge", h.Session.Middleware(auth.Skipper))
	bridge.Use(middleware.RequestTimeout(h.cfg.RemoteTimeout + 5*time.Second))

	preferences.NewHandler(h.Store, h.logger).RegisterRoutes(bridge)
	patient.NewHandler(h.Recent).RegisterRoutes(bridge)
	assessment.NewHandler(h.Assessor).RegisterRoutes(bridge)
	navigation.NewHandler(h.Hub, h.logger).RegisterRoutes(bridge)
	websocket.NewHandler(h.Hub).RegisterRoutes(bridge)

	return e
}

// Listen binds the bridge address, issues the session token and writes it
// to the token file for separately started UIs.
func (h *Host) Listen() error {
	ln, err := net.Listen("tcp", h.cfg.BridgeAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.cfg.BridgeAddr, err)
	}
	token, err := h.Session.Issue()
	if err != nil {
		ln.Close()
		return err
	}
	if err := auth.WriteTokenFile(h.fs, h.tokenPath, token); err != nil {
		// The in-process UI still works without the file.
		h.logger.Warn().Err(err).Str("path", h.tokenPath).Msg("could not write bridge token")
	}
	h.listener = ln
	h.token = token
	return nil
}

// URL is the bridge base URL once Listen has succeeded.
func (h *Host) URL() string {
	if h.listener == nil {
		return ""
	}
	return "http://" + h.listener.Addr().String()
}

// Token is the session token issued by Listen.
func (h *Host) Token() string {
	return h.token
}

// Serve runs until ctx is cancelled, then shuts down gracefully.
func (h *Host) Serve(ctx context.Context) error {
	if h.listener == nil {
		if err := h.Listen(); err != nil {
			return err
		}
	}
	h.Echo.Listener = h.listener

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info().
			Str("addr", h.listener.Addr().String()).
			Str("settings", h.Store.Path()).
			Str("remote", h.Store.RemoteEndpoint()).
			Msg("bridge listening")
		if err := h.Echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		h.cleanup()
		return err
	case <-ctx.Done():
	}

	h.logger.Info().Msg("shutting down bridge")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := h.Echo.Shutdown(shutdownCtx)
	h.cleanup()
	if err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	h.logger.Info().Msg("bridge stopped")
	return nil
}

func (h *Host) cleanup() {
	if err := auth.RemoveTokenFile(h.fs, h.tokenPath); err != nil {
		h.logger.Warn().Err(err).Msg("could not remove bridge token")
	}
}
