package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// HandleError logs err once and answers with the status its type maps to and a short plain-text message.
// message is used when err carries no client-facing text of its own.
func HandleError(reqCtx *gin.Context, log zerolog.Logger, err error, message string) {
	platformErr := platformerrors.GetPlatformError(err)
	if platformErr == nil {
		platformErr = platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerHandler,
			platformerrors.ErrorTypeInternal, message, err, "")
	}
	platformerrors.LogError(log, platformErr)

	text := platformErr.Message
	if text == "" {
		text = message
	}
	_ = reqCtx.Error(err)
	reqCtx.String(platformerrors.ErrorTypeToHTTPStatus(platformErr.Type), text)
	reqCtx.Abort()
}

// HandleNewError creates a new typed error at the route layer and handles it
func HandleNewError(reqCtx *gin.Context, log zerolog.Logger, errorType platformerrors.ErrorType, message string, uuid string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, message, nil, uuid)
	HandleError(reqCtx, log, err, message)
}

// NotFound answers 404 for paths no route serves.
func NotFound(reqCtx *gin.Context) {
	reqCtx.String(http.StatusNotFound, "Not found!")
	reqCtx.Abort()
}
