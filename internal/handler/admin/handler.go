package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/handler"
	"github.com/jwalitptl/care-booking/internal/service/admin"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Handler struct {
	service *admin.Service
}

func NewHandler(service *admin.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects rg to be restricted to admins.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.Summary)
	rg.GET("/providers", h.ListProviders)
	rg.POST("/providers/:id/approve", h.ApproveProvider)
}

func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) ListProviders(c *gin.Context) {
	var pendingOnly bool
	switch c.Query("status") {
	case "", "all":
	case "pending":
		pendingOnly = true
	default:
		_ = c.Error(apperrors.ValidationFailed("status"))
		return
	}

	providers, err := h.service.ListProviders(c.Request.Context(), pendingOnly)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(providers))
}

func (h *Handler) ApproveProvider(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("id"))
		return
	}

	provider, err := h.service.ApproveProvider(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(provider))
}
