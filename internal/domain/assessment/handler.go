package assessment

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/news2/shell/internal/domain/vitals"
	"github.com/news2/shell/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(bridge *echo.Group) {
	api := bridge.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/calculate", h.Calculate)
	api.GET("/history/:patient_id", h.History)
	api.GET("/statistics/:patient_id", h.Statistics)
}

func (h *Handler) Health(c echo.Context) error {
	health, err := h.svc.Health(c.Request().Context())
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, health)
}

func (h *Handler) Calculate(c echo.Context) error {
	var sub vitals.Submission
	if err := c.Bind(&sub); err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "calculate", err))
	}
	res, err := h.svc.Calculate(c.Request().Context(), sub)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) History(c echo.Context) error {
	limit, err := intQuery(c, "limit", DefaultHistoryLimit)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "get history", err))
	}
	recs, err := h.svc.History(c.Request().Context(), c.Param("patient_id"), limit)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}

func (h *Handler) Statistics(c echo.Context) error {
	days, err := intQuery(c, "days", DefaultStatisticsDays)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "get statistics", err))
	}
	st, err := h.svc.Statistics(c.Request().Context(), c.Param("patient_id"), days)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}
