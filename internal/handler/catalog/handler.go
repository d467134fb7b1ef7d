package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/handler"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/service/catalog"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Handler struct {
	service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/providers/:id/services", h.ListServices)
}

// RegisterAdminRoutes expects rg to be restricted to admins.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/providers/:id/services", h.CreateService)
}

func (h *Handler) ListServices(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("id"))
		return
	}

	services, err := h.service.ListActive(c.Request.Context(), providerID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(services))
}

func (h *Handler) CreateService(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("id"))
		return
	}

	var req model.CreateServiceRequest
	if err := handler.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), providerID, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}
