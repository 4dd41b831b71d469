package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/domain/upload"
	"github.com/janhq/chat-api/internal/infrastructure/metrics"
	"github.com/janhq/chat-api/internal/interfaces/httpserver/responses"
)

// UploadHandler hands out direct-upload parameters.
type UploadHandler struct {
	service *upload.Service
	log     zerolog.Logger
}

func NewUploadHandler(service *upload.Service, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		log:     log.With().Str("component", "upload-handler").Logger(),
	}
}

// AuthParams godoc
// @Summary      Upload authentication parameters
// @Description  Returns short-lived parameters for a direct upload to the media CDN.
// @Tags         uploads
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {string}  string
// @Router       /api/upload [get]
func (h *UploadHandler) AuthParams(c *gin.Context) {
	params, err := h.service.AuthParams(c.Request.Context())
	if err != nil {
		metrics.RecordUploadParams(h.service.Provider(), "error")
		responses.HandleError(c, h.log, err, "Error issuing upload parameters!")
		return
	}
	metrics.RecordUploadParams(h.service.Provider(), "success")
	c.JSON(http.StatusOK, params)
}
