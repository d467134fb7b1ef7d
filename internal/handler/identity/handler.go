package identity

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-booking/internal/handler"
	"github.com/jwalitptl/care-booking/internal/middleware"
	"github.com/jwalitptl/care-booking/internal/service/identity"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Handler struct {
	service *identity.Service
}

func NewHandler(service *identity.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects rg to be authenticated.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.Me)
}

func (h *Handler) Me(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized(""))
		return
	}

	profile, err := h.service.ResolveOrCreate(c.Request.Context(), *caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}
