package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/care-booking/internal/handler"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle errors if they exist
		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			event := log.Warn()
			if kind := apperrors.KindOf(e.Err); kind == apperrors.KindInternal ||
				kind == apperrors.KindPersistenceUnavailable ||
				kind == apperrors.KindPersistenceWriteFailed {
				event = log.Error()
			}
			event.
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		status, resp := handler.ErrorResponseFor(c.Errors.Last().Err)
		c.JSON(status, resp)
	}
}

func abortWithError(c *gin.Context, err error) {
	status, resp := handler.ErrorResponseFor(err)
	c.AbortWithStatusJSON(status, resp)
}
