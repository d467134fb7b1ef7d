package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db    Pinger
	redis Pinger
}

// NewHandler checks db on readiness; redis is optional and may be nil.
func NewHandler(db Pinger, redis Pinger) *Handler {
	return &Handler{
		db:    db,
		redis: redis,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "Database connection failed",
		})
		return
	}

	resp := gin.H{"status": "UP"}
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			// Bookings keep working without redis; only event fan-out lags.
			resp["redis"] = "DOWN"
		} else {
			resp["redis"] = "UP"
		}
	}
	c.JSON(http.StatusOK, resp)
}
