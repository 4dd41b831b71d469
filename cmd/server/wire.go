//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/config"
	"github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/domain/upload"
	"github.com/janhq/chat-api/internal/infrastructure/auth"
	"github.com/janhq/chat-api/internal/infrastructure/logger"
	"github.com/janhq/chat-api/internal/infrastructure/uploads"
	"github.com/janhq/chat-api/internal/interfaces/httpserver"
)

var chatSet = wire.NewSet(
	provideStore,
	wire.Bind(new(httpserver.Pinger), new(*Store)),
	provideChatService,
)

var uploadSet = wire.NewSet(
	uploads.NewIssuer,
	upload.NewService,
)

// BuildApplication assembles the chat API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		chatSet,
		uploadSet,
		provideReconciler,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func provideChatService(store *Store, log zerolog.Logger) chat.Service {
	return chat.NewService(store.Chats, store.Index, store.Tx, log)
}
