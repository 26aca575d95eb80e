package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/news2/shell/internal/platform/apperr"
)

type Handler struct {
	recent *Recent
}

func NewHandler(recent *Recent) *Handler {
	return &Handler{recent: recent}
}

func (h *Handler) RegisterRoutes(bridge *echo.Group) {
	bridge.GET("/recent-patients", h.ListRecent)
	bridge.POST("/recent-patients", h.AddRecent)
}

// RecentResponse is the body of both recent-patient routes.
type RecentResponse struct {
	Patients []string `json:"patients"`
}

type addRecentRequest struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) ListRecent(c echo.Context) error {
	return c.JSON(http.StatusOK, RecentResponse{Patients: h.recent.List()})
}

func (h *Handler) AddRecent(c echo.Context) error {
	var req addRecentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.Wrap(apperr.KindInvalidRequest, "add recent patient", err))
	}
	list, err := h.recent.Touch(req.PatientID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, RecentResponse{Patients: list})
}
