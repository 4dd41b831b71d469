package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type requestIDKey struct{}

// WithRequestID stores the request id so errors raised deeper in the stack can carry it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func getRequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeInternal      ErrorType = "INTERNAL"
	ErrorTypeExternal      ErrorType = "EXTERNAL"
	ErrorTypeDatabaseError ErrorType = "DATABASE_ERROR"
)

// Layer represents the application layer where the error occurred
type Layer string

const (
	LayerRepository     Layer = "repository"
	LayerDomain         Layer = "domain"
	LayerHandler        Layer = "handler"
	LayerRoute          Layer = "route"
	LayerInfrastructure Layer = "infrastructure"
)

// PlatformError represents an error with context and metadata
type PlatformError struct {
	UUID      string
	Type      ErrorType
	Message   string
	Err       error
	RequestID string
	Layer     Layer
	Timestamp time.Time
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s][%s][%s] %s: %v", e.Layer, e.Type, e.UUID, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s][%s][%s] %s", e.Layer, e.Type, e.UUID, e.Message)
}

// Unwrap returns the underlying error
func (e *PlatformError) Unwrap() error {
	return e.Err
}

// NewError creates a new PlatformError with the specified parameters
func NewError(ctx context.Context, layer Layer, errorType ErrorType, message string, err error, uuid string) *PlatformError {
	return &PlatformError{
		UUID:      uuid,
		Type:      errorType,
		Message:   message,
		Err:       err,
		RequestID: getRequestIDFromContext(ctx),
		Layer:     layer,
		Timestamp: time.Now().UTC(),
	}
}

// AsError wraps an error with layer context, keeping the original type when it is already a PlatformError.
func AsError(ctx context.Context, layer Layer, err error, message string) *PlatformError {
	if err == nil {
		return nil
	}

	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return NewError(ctx, layer, platformErr.Type, message, platformErr, platformErr.UUID)
	}
	return NewError(ctx, layer, ErrorTypeInternal, message, err, "")
}

// GetPlatformError extracts the outermost PlatformError from err, if any.
func GetPlatformError(err error) *PlatformError {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr
	}
	return nil
}

// ErrorTypeToHTTPStatus maps error types to HTTP status codes.
// Upstream (EXTERNAL) failures surface as 500 on this API.
func ErrorTypeToHTTPStatus(errorType ErrorType) int {
	switch errorType {
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// IsErrorType checks if an error is a PlatformError with the specified type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Type == errorType
	}
	return false
}

// LogError logs a platform error with proper structure
func LogError(logger zerolog.Logger, err *PlatformError) {
	if err == nil {
		return
	}

	event := logger.Error()
	if err.Type == ErrorTypeValidation || err.Type == ErrorTypeNotFound || err.Type == ErrorTypeUnauthorized {
		event = logger.Warn()
	}
	event = event.
		Str("error_uuid", err.UUID).
		Str("error_type", string(err.Type)).
		Str("layer", string(err.Layer))

	if err.RequestID != "" {
		event = event.Str("request_id", err.RequestID)
	}
	if err.Err != nil {
		event = event.Err(err.Err)
	}
	event.Msg(err.Message)
}
