package scheduling

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole("admin", "doctor", "nurse", "receptionist")

	shifts := api.Group("/shifts")
	shifts.POST("", h.CreateShift, auth.RequireRole("admin"))
	shifts.GET("", h.SearchShifts, staff)
	shifts.GET("/stats", h.ShiftStats, auth.RequireRole("admin"))
	shifts.GET("/:id", h.GetShift, staff)
	shifts.PUT("/:id", h.UpdateShift, auth.RequireRole("admin"))
	shifts.DELETE("/:id", h.DeleteShift, auth.RequireRole("admin"))

	api.GET("/doctors/:id/weekly-schedule", h.WeeklySchedule, staff)
	api.GET("/availability", h.FindAvailableDoctors, staff)
	api.GET("/suggestions", h.SuggestAlternatives, staff)

	appts := api.Group("/appointments", staff)
	appts.POST("", h.CreateAppointment)
	appts.GET("", h.SearchAppointments)
	appts.GET("/:id", h.GetAppointment)
	appts.PUT("/:id/reschedule", h.Reschedule)
	appts.PUT("/:id/confirm", h.Confirm)
	appts.PUT("/:id/check-in", h.CheckIn)
	appts.PUT("/:id/start", h.Start)
	appts.PUT("/:id/complete", h.Complete)
	appts.PUT("/:id/no-show", h.MarkNoShow)
	appts.PUT("/:id/cancel", h.Cancel)
}

// -- Shifts --

func (h *Handler) CreateShift(c echo.Context) error {
	var shift ShiftRecord
	if err := c.Bind(&shift); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		shift.CreatedBy = &uid
	}
	err := h.svc.CreateShift(c.Request().Context(), &shift)
	if errors.Is(err, ErrShiftExists) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, shift)
}

func (h *Handler) GetShift(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	shift, err := h.svc.GetShift(c.Request().Context(), id)
	if errors.Is(err, ErrShiftNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "shift not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, shift)
}

func (h *Handler) UpdateShift(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var shift ShiftRecord
	if err := c.Bind(&shift); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	shift.ID = id
	err = h.svc.UpdateShift(c.Request().Context(), &shift)
	switch {
	case errors.Is(err, ErrShiftNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "shift not found")
	case errors.Is(err, ErrShiftExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, shift)
}

func (h *Handler) DeleteShift(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	err = h.svc.DeleteShift(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrShiftNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "shift not found")
	case errors.Is(err, ErrShiftHasBookings):
		return echo.NewHTTPError(http.StatusConflict, "shift has live appointments")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SearchShifts(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"doctor_id", "department", "status", "date"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.SearchShifts(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) WeeklySchedule(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	weekStart, err := parseDate(c.QueryParam("week_start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid week_start: want YYYY-MM-DD")
	}
	week, err := h.svc.WeeklySchedule(c.Request().Context(), doctorID, weekStart)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, week)
}

func (h *Handler) ShiftStats(c echo.Context) error {
	from, err := parseDate(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from: want YYYY-MM-DD")
	}
	to, err := parseDate(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to: want YYYY-MM-DD")
	}
	stats, err := h.svc.ShiftStats(c.Request().Context(), from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

// -- Discovery and suggestions --

func (h *Handler) discoveryRequest(c echo.Context) (DiscoveryRequest, error) {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return DiscoveryRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid date: want YYYY-MM-DD")
	}
	start, err := ParseTimeOfDay(c.QueryParam("time"))
	if err != nil {
		return DiscoveryRequest{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	duration := 30
	if d := c.QueryParam("duration"); d != "" {
		duration, err = strconv.Atoi(d)
		if err != nil || duration <= 0 {
			return DiscoveryRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid duration")
		}
	}
	return DiscoveryRequest{
		Date:           date,
		Start:          start,
		Duration:       duration,
		Department:     c.QueryParam("department"),
		Specialization: c.QueryParam("specialization"),
	}, nil
}

func (h *Handler) FindAvailableDoctors(c echo.Context) error {
	req, err := h.discoveryRequest(c)
	if err != nil {
		return err
	}
	offers, err := h.svc.Evaluator().FindAvailableDoctors(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"offers": offers, "count": len(offers)})
}

func (h *Handler) SuggestAlternatives(c echo.Context) error {
	preferred, err := uuid.Parse(c.QueryParam("preferred_doctor"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid preferred_doctor")
	}
	req, err := h.discoveryRequest(c)
	if err != nil {
		return err
	}
	offers, err := h.svc.Evaluator().SuggestAlternatives(c.Request().Context(), preferred, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"offers": offers, "count": len(offers)})
}

// -- Appointments --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req CreateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, decision, err := h.svc.CreateAppointment(c.Request().Context(), req)
	if errors.Is(err, ErrBookingRejected) {
		return c.JSON(http.StatusConflict, decision)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"appointment":        appt,
		"remaining_capacity": decision.RemainingCapacity,
	})
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.GetAppointment(c.Request().Context(), id)
	if errors.Is(err, ErrAppointmentNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) SearchAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, key := range []string{"patient_id", "doctor_id", "status", "date", "source"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	items, total, err := h.svc.SearchAppointments(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type rescheduleRequest struct {
	Date time.Time `json:"date"`
	Slot TimeSlot  `json:"slot"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	appt, decision, err := h.svc.Reschedule(c.Request().Context(), id, req.Date, req.Slot)
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrBookingRejected):
		return c.JSON(http.StatusConflict, decision)
	case errors.Is(err, ErrBadStatusTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Confirm(c echo.Context) error  { return h.transition(c, h.svc.Confirm) }
func (h *Handler) CheckIn(c echo.Context) error  { return h.transition(c, h.svc.CheckIn) }
func (h *Handler) Start(c echo.Context) error    { return h.transition(c, h.svc.Start) }
func (h *Handler) Complete(c echo.Context) error { return h.transition(c, h.svc.Complete) }
func (h *Handler) MarkNoShow(c echo.Context) error {
	return h.transition(c, h.svc.MarkNoShow)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var by *uuid.UUID
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		by = &uid
	}
	appt, err := h.svc.Cancel(c.Request().Context(), id, by, req.Reason)
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrBadStatusTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, id uuid.UUID) (*Appointment, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := fn(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrBadStatusTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
