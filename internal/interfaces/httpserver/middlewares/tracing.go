package middlewares

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/janhq/chat-api/internal/infrastructure/auth"
)

// TracingMiddleware opens a server span per request, continuing any W3C parent from the headers.
// Unmatched paths share one span name so SPA asset requests do not explode span cardinality.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)

	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		name := c.Request.Method + " " + route
		if route == "" {
			name = c.Request.Method + " static"
		}

		ctx, span := tracer.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethod(c.Request.Method),
				semconv.HTTPRoute(route),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(semconv.HTTPStatusCode(status))
		if requestID := RequestIDFromContext(c); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		if principal, ok := auth.PrincipalFrom(c); ok {
			span.SetAttributes(semconv.EnduserID(principal.UserID))
		}
		// 4xx are the caller's problem and leave the span unset.
		if status >= 500 {
			span.SetStatus(codes.Error, c.Errors.String())
			if err := c.Errors.Last(); err != nil {
				span.RecordError(err)
			}
		}
	}
}
