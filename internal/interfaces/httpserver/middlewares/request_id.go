package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

// RequestID injects an X-Request-Id header when missing and makes it available via gin context
// and to errors raised further down the stack.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, requestID)
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set(requestIDKey, requestID)
		c.Request = c.Request.WithContext(platformerrors.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// RequestIDFromContext returns the request id stored in the gin context.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
