package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/infrastructure/auth"
	"github.com/janhq/chat-api/internal/infrastructure/metrics"
	"github.com/janhq/chat-api/internal/interfaces/httpserver/requests"
	"github.com/janhq/chat-api/internal/interfaces/httpserver/responses"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// ChatHandler exposes the chat endpoints.
type ChatHandler struct {
	service chat.Service
	log     zerolog.Logger
}

func NewChatHandler(service chat.Service, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		log:     log.With().Str("component", "chat-handler").Logger(),
	}
}

// CreateChat godoc
// @Summary      Create chat
// @Description  Creates a chat seeded with the given text and appends it to the caller's chat index.
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        request  body      requests.CreateChatRequest  true  "Seed text"
// @Success      201      {string}  string  "Chat id"
// @Failure      400      {string}  string
// @Failure      401      {string}  string
// @Failure      500      {string}  string
// @Security     BearerAuth
// @Router       /api/chats [post]
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req requests.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Strs("fields", requests.InvalidFields(err)).Msg("invalid create chat request")
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, "No text provided!", "1e2f3a4b-5c6d-4e7f-8091-a2b3c4d5e6f7")
		return
	}

	created, err := h.service.CreateChat(c.Request.Context(), userID, req.Text)
	if err != nil {
		responses.HandleError(c, h.log, err, "Error creating chat!")
		return
	}
	metrics.ChatsCreatedTotal.Inc()
	c.JSON(http.StatusCreated, created.ID)
}

// ListChats godoc
// @Summary      List chats
// @Description  Lists the caller's chat summaries in creation order.
// @Tags         chats
// @Produce      json
// @Success      200  {array}   chat.Summary
// @Failure      401  {string}  string
// @Failure      500  {string}  string
// @Security     BearerAuth
// @Router       /api/userchats [get]
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	summaries, err := h.service.ListChats(c.Request.Context(), userID)
	if err != nil {
		responses.HandleError(c, h.log, err, "Error fetching userchats!")
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// GetChat godoc
// @Summary      Get chat
// @Description  Returns the chat when it exists and belongs to the caller.
// @Tags         chats
// @Produce      json
// @Param        id   path      string  true  "Chat id"
// @Success      200  {object}  chat.Chat
// @Failure      401  {string}  string
// @Failure      404  {string}  string
// @Failure      500  {string}  string
// @Security     BearerAuth
// @Router       /api/chats/{id} [get]
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	found, err := h.service.GetChat(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		responses.HandleError(c, h.log, err, "Error fetching chat!")
		return
	}
	c.JSON(http.StatusOK, found)
}

// AppendExchange godoc
// @Summary      Append exchange
// @Description  Appends a user question and the model answer to the chat history.
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Chat id"
// @Param        request  body      requests.AppendExchangeRequest  true  "Question and answer"
// @Success      200      {object}  chat.UpdateResult
// @Failure      400      {string}  string
// @Failure      401      {string}  string
// @Failure      404      {string}  string
// @Failure      500      {string}  string
// @Security     BearerAuth
// @Router       /api/chats/{id} [put]
func (h *ChatHandler) AppendExchange(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req requests.AppendExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Strs("fields", requests.InvalidFields(err)).Msg("invalid append request")
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeValidation, "Question and answer are required!", "2f3a4b5c-6d7e-4f80-91a2-b3c4d5e6f708")
		return
	}

	result, err := h.service.AppendExchange(c.Request.Context(), c.Param("id"), userID, chat.Exchange{
		Question: req.Question,
		Answer:   req.Answer,
		Img:      req.Img,
	})
	if err != nil {
		responses.HandleError(c, h.log, err, "Error adding conversation!")
		return
	}
	metrics.RecordExchange(req.Img != "")
	c.JSON(http.StatusOK, result)
}

func (h *ChatHandler) userID(c *gin.Context) (string, bool) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok || principal.UserID == "" {
		responses.HandleNewError(c, h.log, platformerrors.ErrorTypeUnauthorized, "Unauthenticated!", "3a4b5c6d-7e8f-4091-a2b3-c4d5e6f70819")
		return "", false
	}
	return principal.UserID, true
}
