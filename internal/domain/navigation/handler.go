// Package navigation turns host menu actions into events pushed to every
// connected UI surface.
package navigation

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/news2/shell/internal/platform/apperr"
	"github.com/news2/shell/internal/platform/websocket"
)

// MenuEvent is a host-originated request to change the UI's view.
type MenuEvent string

const (
	NewAssessment MenuEvent = "new-assessment"
	OpenSettings  MenuEvent = "open-settings"
)

// MenuEvents lists every accepted event.
var MenuEvents = []MenuEvent{NewAssessment, OpenSettings}

func ParseMenuEvent(s string) (MenuEvent, error) {
	for _, e := range MenuEvents {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown menu event %q", s)
}

// Broadcaster is satisfied by *websocket.Hub.
type Broadcaster interface {
	Broadcast(event websocket.Event) int
}

type Request struct {
	Event string `json:"event"`
}

type Response struct {
	Event     MenuEvent `json:"event"`
	Delivered int       `json:"delivered"`
}

type Handler struct {
	hub    Broadcaster
	logger zerolog.Logger
}

func NewHandler(hub Broadcaster, logger zerolog.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

func (h *Handler) RegisterRoutes(bridge *echo.Group) {
	bridge.POST("/navigation", h.Post)
}

func (h *Handler) Post(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "navigation", err))
	}
	ev, err := ParseMenuEvent(req.Event)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "navigation", err))
	}

	n := h.hub.Broadcast(websocket.Event{Type: string(ev), Topic: websocket.TopicNavigation})
	h.logger.Info().Str("event", string(ev)).Int("delivered", n).Msg("menu event published")
	return c.JSON(http.StatusAccepted, Response{Event: ev, Delivered: n})
}
