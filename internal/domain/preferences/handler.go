// Package preferences exposes the user-facing settings (remote endpoint,
// theme, window geometry) over the bridge.
package preferences

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/settings"
)

// Store is the slice of *settings.Store the handler uses.
type Store interface {
	RemoteEndpoint() string
	SetRemoteEndpoint(endpoint string) error
	Theme() settings.Theme
	SetTheme(theme settings.Theme) error
	Window() settings.Geometry
	SetWindow(g settings.Geometry) error
}

type EndpointBody struct {
	Endpoint string `json:"endpoint"`
}

type ThemeBody struct {
	Theme settings.Theme `json:"theme"`
}

type Handler struct {
	store  Store
	logger zerolog.Logger
}

func NewHandler(store Store, logger zerolog.Logger) *Handler {
	return &Handler{store: store, logger: logger.With().Str("component", "preferences").Logger()}
}

func (h *Handler) RegisterRoutes(bridge *echo.Group) {
	g := bridge.Group("/settings")
	g.GET("/endpoint", h.GetEndpoint)
	g.PUT("/endpoint", h.SetEndpoint)
	g.GET("/theme", h.GetTheme)
	g.PUT("/theme", h.SetTheme)
	g.GET("/window", h.GetWindow)
	g.PUT("/window", h.SetWindow)
}

func (h *Handler) GetEndpoint(c echo.Context) error {
	return c.JSON(http.StatusOK, EndpointBody{Endpoint: h.store.RemoteEndpoint()})
}

// SetEndpoint takes effect on the next outbound call; nothing is cached.
func (h *Handler) SetEndpoint(c echo.Context) error {
	var body EndpointBody
	if err := c.Bind(&body); err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "set endpoint", err))
	}
	if err := h.store.SetRemoteEndpoint(body.Endpoint); err != nil {
		return apperr.Respond(c, err)
	}
	h.logger.Info().Str("endpoint", h.store.RemoteEndpoint()).Msg("remote endpoint changed")
	return c.JSON(http.StatusOK, EndpointBody{Endpoint: h.store.RemoteEndpoint()})
}

func (h *Handler) GetTheme(c echo.Context) error {
	return c.JSON(http.StatusOK, ThemeBody{Theme: h.store.Theme()})
}

func (h *Handler) SetTheme(c echo.Context) error {
	var body struct {
		Theme string `json:"theme"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "set theme", err))
	}
	theme, err := settings.ParseTheme(body.Theme)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "set theme", err))
	}
	if err := h.store.SetTheme(theme); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, ThemeBody{Theme: theme})
}

func (h *Handler) GetWindow(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Window())
}

func (h *Handler) SetWindow(c echo.Context) error {
	var g settings.Geometry
	if err := c.Bind(&g); err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "set window", err))
	}
	if err := h.store.SetWindow(g); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, h.store.Window())
}
