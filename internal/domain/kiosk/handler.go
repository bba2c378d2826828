package kiosk

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/scheduling"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the kiosk surface. Kiosk terminals are unauthenticated
// devices inside the clinic, so these routes sit on the public group behind
// the rate limiter rather than the JWT middleware.
func (h *Handler) RegisterRoutes(public *echo.Group) {
	kiosk := public.Group("/kiosk")
	kiosk.GET("/patients/code/:code", h.LookupByCode)
	kiosk.GET("/patients/phone/:phone", h.LookupByPhone)
	kiosk.POST("/patients", h.RegisterWalkIn)
	kiosk.POST("/appointments", h.Book)
	kiosk.POST("/check-in/:code", h.CheckIn)
}

func (h *Handler) LookupByCode(c echo.Context) error {
	p, err := h.svc.LookupByCode(c.Request().Context(), c.Param("code"))
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) LookupByPhone(c echo.Context) error {
	found, err := h.svc.LookupByPhone(c.Request().Context(), c.Param("phone"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"patients": found, "count": len(found)})
}

func (h *Handler) RegisterWalkIn(c echo.Context) error {
	var req WalkInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.RegisterWalkIn(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Book(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, decision, err := h.svc.Book(c.Request().Context(), req)
	switch {
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, scheduling.ErrBookingRejected):
		return c.JSON(http.StatusConflict, decision)
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"appointment":        appt,
		"remaining_capacity": decision.RemainingCapacity,
	})
}

func (h *Handler) CheckIn(c echo.Context) error {
	appt, err := h.svc.CheckIn(c.Request().Context(), c.Param("code"), time.Now())
	switch {
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrTooEarly):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, scheduling.ErrBadStatusTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}
