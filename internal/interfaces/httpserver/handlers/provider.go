package handlers

import (
	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/domain/upload"
)

// Provider wires HTTP handlers.
type Provider struct {
	Chat   *ChatHandler
	Upload *UploadHandler
}

func NewProvider(chatService chat.Service, uploadService *upload.Service, log zerolog.Logger) *Provider {
	return &Provider{
		Chat:   NewChatHandler(chatService, log),
		Upload: NewUploadHandler(uploadService, log),
	}
}
