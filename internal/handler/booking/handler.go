package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/handler"
	"github.com/jwalitptl/care-booking/internal/middleware"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/service/booking"
	"github.com/jwalitptl/care-booking/internal/service/identity"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Handler struct {
	service  *booking.Service
	identity *identity.Service
}

func NewHandler(service *booking.Service, identity *identity.Service) *Handler {
	return &Handler{
		service:  service,
		identity: identity,
	}
}

// RegisterPublicRoutes mounts routes that need no caller.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings/availability", h.CheckAvailability)
}

// RegisterRoutes expects rg to be authenticated.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.POST("/:id/cancel", h.CancelBooking)
	}
}

// RegisterAdminRoutes expects rg to be restricted to admins.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/bookings/:id/status", h.UpdateStatus)
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	slot, err := booking.ParseSlot(c.Query("provider_id"), c.Query("date"), c.Query("time"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	available, err := h.service.IsSlotAvailable(c.Request.Context(), slot)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"available": available}))
}

func (h *Handler) CreateBooking(c *gin.Context) {
	patient, ok := h.patient(c)
	if !ok {
		return
	}

	var req model.CreateBookingRequest
	if err := handler.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), patient, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) ListBookings(c *gin.Context) {
	patient, ok := h.patient(c)
	if !ok {
		return
	}

	bookings, err := h.service.ListForPatient(c.Request.Context(), patient)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(bookings))
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("id"))
		return
	}

	patient, ok := h.patient(c)
	if !ok {
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), patient, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(cancelled))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("id"))
		return
	}

	var req model.UpdateBookingStatusRequest
	if err := handler.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

// patient resolves the caller's profile id, attaching the error on failure.
func (h *Handler) patient(c *gin.Context) (uuid.UUID, bool) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized(""))
		return uuid.Nil, false
	}

	profile, err := h.identity.ResolveOrCreate(c.Request.Context(), *caller)
	if err != nil {
		_ = c.Error(err)
		return uuid.Nil, false
	}
	return profile.ID, true
}
