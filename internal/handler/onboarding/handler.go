package onboarding

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/care-booking/internal/handler"
	"github.com/jwalitptl/care-booking/internal/middleware"
	"github.com/jwalitptl/care-booking/internal/model"
	"github.com/jwalitptl/care-booking/internal/service/onboarding"
	"github.com/jwalitptl/care-booking/pkg/auth"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
	"github.com/jwalitptl/care-booking/pkg/logger"
	"github.com/jwalitptl/care-booking/pkg/messaging"
	"github.com/jwalitptl/care-booking/pkg/security"
)

const stashTimeout = 2 * time.Second

type Config struct {
	// DegradedAck answers 202 with a non-durable ack when the store is down.
	DegradedAck bool
	PendingList string
}

// pendingSubmission is what lands in the pending list for operator replay.
// The API key never travels in clear text.
type pendingSubmission struct {
	Reference    string                  `json:"reference"`
	ReceivedAt   time.Time               `json:"received_at"`
	AuthID       string                  `json:"auth_id,omitempty"`
	Request      model.OnboardingRequest `json:"request"`
	APIKeySealed []byte                  `json:"api_key_sealed,omitempty"`
}

type Handler struct {
	service *onboarding.Service
	queue   messaging.Queue
	sealer  security.Encryptor
	config  Config
	logger  *logger.Logger
}

func NewHandler(service *onboarding.Service, queue messaging.Queue, sealer security.Encryptor, config Config, logger *logger.Logger) *Handler {
	return &Handler{
		service: service,
		queue:   queue,
		sealer:  sealer,
		config:  config,
		logger:  logger,
	}
}

// RegisterRoutes expects rg to carry optional authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/onboarding", h.Submit)
}

func (h *Handler) Submit(c *gin.Context) {
	var req model.OnboardingRequest
	if err := handler.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	caller, _ := middleware.CallerFrom(c)
	result, err := h.service.Submit(c.Request.Context(), &req, caller)
	if err == nil {
		c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
		return
	}

	if !h.config.DegradedAck || !apperrors.Is(err, apperrors.KindPersistenceUnavailable) || h.queue == nil {
		_ = c.Error(err)
		return
	}

	ack, stashErr := h.stash(c.Request.Context(), &req, caller)
	if stashErr != nil {
		h.logger.Error(stashErr, "failed to stash onboarding submission")
		_ = c.Error(err)
		return
	}

	h.logger.Warn("onboarding accepted without durable storage", "reference", ack.Reference)
	// The ack is the whole body so its "accepted" status is never read as success.
	c.JSON(http.StatusAccepted, ack)
}

// stash pushes the submission onto the pending list. It runs on a fresh
// deadline because the request's may already be spent waiting on the store.
func (h *Handler) stash(ctx context.Context, req *model.OnboardingRequest, caller *auth.Caller) (*model.OnboardingAck, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stashTimeout)
	defer cancel()

	pending := pendingSubmission{
		Reference:  uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Request:    *req,
	}
	if caller != nil {
		pending.AuthID = caller.ID
	}
	if req.APIKey != "" {
		sealed, err := h.sealer.Encrypt([]byte(req.APIKey))
		if err != nil {
			return nil, err
		}
		pending.APIKeySealed = sealed
		pending.Request.APIKey = ""
	}

	if err := h.queue.Enqueue(ctx, h.config.PendingList, pending); err != nil {
		return nil, err
	}

	return &model.OnboardingAck{
		Status:    "accepted",
		Durable:   false,
		Reference: pending.Reference,
		Message:   "application received but not yet stored; it will be processed once storage recovers",
	}, nil
}
