package hr

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/his/his/internal/platform/auth"
	"github.com/his/his/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("", auth.RequireRole("admin"))
	group.POST("/staff", h.CreateStaff)
	group.GET("/staff", h.ListStaff)
	group.GET("/staff/:id", h.GetStaff)
	group.POST("/staff/:id/leave", h.RequestLeave)
	group.GET("/staff/:id/leave", h.StaffLeave)
	group.GET("/leave/pending", h.PendingLeave)
	group.POST("/leave/:id/approve", h.ApproveLeave)
	group.POST("/leave/:id/reject", h.RejectLeave)
	group.GET("/leave/types", h.LeaveTypes)
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var req CreateStaffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	member, err := h.svc.CreateStaff(c.Request().Context(), &req)
	if err != nil {
		if isValidation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "create staff failed")
	}
	return c.JSON(http.StatusCreated, member)
}

func (h *Handler) GetStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	member, err := h.svc.GetStaff(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "staff member not found")
	}
	return c.JSON(http.StatusOK, member)
}

func (h *Handler) ListStaff(c echo.Context) error {
	p := pagination.FromContext(c)
	staff, total, err := h.svc.ListStaff(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(staff, total, p.Limit, p.Offset))
}

func (h *Handler) RequestLeave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req RequestLeaveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lr, err := h.svc.RequestLeave(c.Request().Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrStaffNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "staff member not found")
		case errors.Is(err, ErrAllowanceExceeded):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrLeaveTypeNotFound), isValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "leave request failed")
	}
	return c.JSON(http.StatusCreated, lr)
}

func (h *Handler) StaffLeave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	requests, err := h.svc.StaffLeave(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, requests)
}

func (h *Handler) PendingLeave(c echo.Context) error {
	p := pagination.FromContext(c)
	requests, total, err := h.svc.PendingLeave(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(requests, total, p.Limit, p.Offset))
}

func (h *Handler) ApproveLeave(c echo.Context) error {
	return h.decide(c, h.svc.ApproveLeave)
}

func (h *Handler) RejectLeave(c echo.Context) error {
	return h.decide(c, h.svc.RejectLeave)
}

func (h *Handler) decide(c echo.Context, fn func(context.Context, uuid.UUID) error) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := fn(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrLeaveNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "leave request not found")
		case errors.Is(err, ErrNotPending), errors.Is(err, ErrAllowanceExceeded):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "leave update failed")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LeaveTypes(c echo.Context) error {
	types, err := h.svc.LeaveTypes(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, types)
}

func isValidation(err error) bool {
	var verr validator.ValidationErrors
	return errors.As(err, &verr)
}
