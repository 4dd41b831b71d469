package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/utils/idgen"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// Service describes the chat use cases exposed to the HTTP layer.
type Service interface {
	CreateChat(ctx context.Context, userID, text string) (*Chat, error)
	GetChat(ctx context.Context, chatID, userID string) (*Chat, error)
	AppendExchange(ctx context.Context, chatID, userID string, exchange Exchange) (UpdateResult, error)
	ListChats(ctx context.Context, userID string) ([]Summary, error)
	ReconcileOrphans(ctx context.Context, grace time.Duration, limit int) (int, error)
}

// Exchange is a question and its answer, appended to a chat as a user/model message pair.
type Exchange struct {
	Question string
	Answer   string
	Img      string
}

type service struct {
	chats ChatRepository
	index IndexRepository
	tx    Transactor
	log   zerolog.Logger
	now   func() time.Time
}

// NewService wires the chat service with its repositories. tx may be nil, in which case the chat
// write and the index write happen one after the other and the reconciler repairs a failed second write.
func NewService(chats ChatRepository, index IndexRepository, tx Transactor, log zerolog.Logger) Service {
	return &service{
		chats: chats,
		index: index,
		tx:    tx,
		log:   log.With().Str("component", "chat-service").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateChat(ctx context.Context, userID, text string) (*Chat, error) {
	if err := requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"No text provided!", nil, "3f6c0a52-1d7e-4b8a-9c21-5e0f7a4b2d13")
	}

	now := s.now()
	newChat := &Chat{
		ID:        idgen.NewChatID(),
		UserID:    userID,
		History:   []Message{NewUserMessage(text, "")},
		CreatedAt: now,
		UpdatedAt: now,
	}
	summary := Summary{ChatID: newChat.ID, Title: Title(text), CreatedAt: now}

	write := func(ctx context.Context) error {
		if err := s.chats.Create(ctx, newChat); err != nil {
			return err
		}
		if err := s.index.AppendSummary(ctx, userID, summary); err != nil {
			s.log.Error().Err(err).
				Str("chat_id", newChat.ID).
				Str("user_id", userID).
				Msg("chat stored without index entry")
			return err
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.WithinTransaction(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "Error creating chat!")
	}

	s.log.Debug().Str("chat_id", newChat.ID).Str("user_id", userID).Msg("chat created")
	return newChat, nil
}

func (s *service) GetChat(ctx context.Context, chatID, userID string) (*Chat, error) {
	if err := requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if !idgen.IsValidChatID(chatID) {
		return nil, chatNotFound(ctx)
	}
	found, err := s.chats.FindByIDAndUser(ctx, chatID, userID)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, chatNotFound(ctx)
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "Error fetching chat!")
	}
	return found, nil
}

func (s *service) AppendExchange(ctx context.Context, chatID, userID string, exchange Exchange) (UpdateResult, error) {
	if err := requireUser(ctx, userID); err != nil {
		return UpdateResult{}, err
	}
	if exchange.Question == "" || exchange.Answer == "" {
		return UpdateResult{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"Question and answer are required!", nil, "8a2d4e61-7c39-4f05-b1e8-2a9c6d3f7b40")
	}
	if !idgen.IsValidChatID(chatID) {
		return UpdateResult{}, chatNotFound(ctx)
	}

	messages := []Message{
		NewUserMessage(exchange.Question, exchange.Img),
		NewModelMessage(exchange.Answer),
	}
	result, err := s.chats.AppendMessages(ctx, chatID, userID, messages)
	if err != nil {
		return UpdateResult{}, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "Error adding conversation!")
	}
	if result.MatchedCount == 0 {
		return UpdateResult{}, chatNotFound(ctx)
	}
	return result, nil
}

func (s *service) ListChats(ctx context.Context, userID string) ([]Summary, error) {
	if err := requireUser(ctx, userID); err != nil {
		return nil, err
	}
	summaries, err := s.index.ListSummaries(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "Error fetching userchats!")
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	return summaries, nil
}

func requireUser(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
			"Unauthenticated!", nil, "c51b7f2e-90a4-4d3c-8e6b-1f2a3b4c5d6e")
	}
	return nil
}

func chatNotFound(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
		"Chat not found!", nil, "5d9e1a7b-3c2f-4e80-a6b4-9f0c1d2e3a4b")
}
