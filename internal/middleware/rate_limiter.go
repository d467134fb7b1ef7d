package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/care-booking/internal/handler"
)

const defaultIdleTTL = 10 * time.Minute

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
	// IdleTTL drops a client's bucket after this long without requests.
	IdleTTL time.Duration
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients *cache.Cache
	rate    rate.Limit
	burst   int
	idleTTL time.Duration
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaultIdleTTL
	}
	return &RateLimiter{
		clients: cache.New(config.IdleTTL, 2*config.IdleTTL),
		rate:    config.Rate,
		burst:   config.Burst,
		idleTTL: config.IdleTTL,
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.clients.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		rl.clients.Set(ip, limiter, rl.idleTTL)
		return limiter
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.clients.Set(ip, limiter, rl.idleTTL)
	return limiter
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, handler.NewErrorResponse("rate_limited", "rate limit exceeded"))
			return
		}
		c.Next()
	}
}
