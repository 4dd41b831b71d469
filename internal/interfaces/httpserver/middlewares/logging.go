package middlewares

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/chat-api/internal/infrastructure/auth"
)

// healthPaths are polled by orchestrators and only logged at debug.
var healthPaths = map[string]bool{
	"/healthz":     true,
	"/readyz":      true,
	"/health/auth": true,
	"/metrics":     true,
}

// LoggingMiddleware writes one access line per request. API calls carry the authenticated user and the
// matched route; SPA asset hits are tagged static. Query strings are never logged.
func LoggingMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		case healthPaths[path]:
			event = logger.Debug()
		default:
			event = logger.Info()
		}
		if !event.Enabled() {
			return
		}

		route := c.FullPath()
		if route == "" && !strings.HasPrefix(path, "/api/") {
			route = "static"
		}
		event = event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("route", route).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if requestID := RequestIDFromContext(c); requestID != "" {
			event = event.Str("request_id", requestID)
		}
		if principal, ok := auth.PrincipalFrom(c); ok {
			event = event.Str("user_id", principal.UserID)
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
			event = event.Str("trace_id", sc.TraceID().String())
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			event = event.Str("error", errs.String())
		}
		event.Msg("http request")
	}
}
