package platformerrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeToHTTPStatus(t *testing.T) {
	cases := map[ErrorType]int{
		ErrorTypeValidation:    http.StatusBadRequest,
		ErrorTypeUnauthorized:  http.StatusUnauthorized,
		ErrorTypeNotFound:      http.StatusNotFound,
		ErrorTypeDatabaseError: http.StatusInternalServerError,
		ErrorTypeExternal:      http.StatusInternalServerError,
		ErrorTypeInternal:      http.StatusInternalServerError,
	}
	for errorType, want := range cases {
		assert.Equal(t, want, ErrorTypeToHTTPStatus(errorType), errorType)
	}
}

func TestAsErrorKeepsType(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	inner := NewError(ctx, LayerRepository, ErrorTypeNotFound, "chat not found", nil, "abc")

	wrapped := AsError(ctx, LayerDomain, fmt.Errorf("lookup: %w", inner), "get chat")

	assert.Equal(t, ErrorTypeNotFound, wrapped.Type)
	assert.Equal(t, "abc", wrapped.UUID)
	assert.Equal(t, "req-1", wrapped.RequestID)
	assert.True(t, IsErrorType(wrapped, ErrorTypeNotFound))
}

func TestAsErrorDefaultsToInternal(t *testing.T) {
	wrapped := AsError(context.Background(), LayerDomain, errors.New("boom"), "create chat")
	assert.Equal(t, ErrorTypeInternal, wrapped.Type)
	assert.Nil(t, AsError(context.Background(), LayerDomain, nil, "noop"))
}
