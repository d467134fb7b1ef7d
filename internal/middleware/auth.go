package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/care-booking/internal/policy"
	"github.com/jwalitptl/care-booking/internal/repository"
	"github.com/jwalitptl/care-booking/pkg/auth"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

const ContextCaller = "caller"

type AuthMiddleware struct {
	tokens auth.JWTService
	admins policy.Evaluator
}

func NewAuthMiddleware(tokens auth.JWTService, admins policy.Evaluator) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		admins: admins,
	}
}

// Authenticate verifies the bearer token and sets the caller in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := m.callerFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if caller == nil {
			abortWithError(c, apperrors.Unauthorized("missing authorization header"))
			return
		}

		c.Set(ContextCaller, caller)
		c.Next()
	}
}

// OptionalAuth sets the caller when a token is sent. A request without one
// proceeds unauthenticated; a bad token is still rejected.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := m.callerFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if caller != nil {
			c.Set(ContextCaller, caller)
		}
		c.Next()
	}
}

// RequireAdmin must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			abortWithError(c, apperrors.Unauthorized(""))
			return
		}

		isAdmin, err := m.admins.IsAdmin(c.Request.Context(), *caller)
		if err != nil {
			if errors.Is(err, repository.ErrUnavailable) {
				abortWithError(c, apperrors.Unavailable(err))
			} else {
				abortWithError(c, apperrors.Internal("failed to check permission", err))
			}
			return
		}
		if !isAdmin {
			abortWithError(c, apperrors.Forbidden(""))
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) callerFromHeader(header string) (*auth.Caller, error) {
	if header == "" {
		return nil, nil
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperrors.Unauthorized("invalid authorization format")
	}

	caller, err := m.tokens.ValidateToken(parts[1])
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token")
	}
	return caller, nil
}

// CallerFrom returns the authenticated caller, if any.
func CallerFrom(c *gin.Context) (*auth.Caller, bool) {
	v, ok := c.Get(ContextCaller)
	if !ok {
		return nil, false
	}
	caller, ok := v.(*auth.Caller)
	return caller, ok && caller != nil
}
