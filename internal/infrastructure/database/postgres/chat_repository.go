package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/infrastructure/database/postgres/entities"
	"github.com/janhq/chat-api/internal/utils/idgen"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// ChatRepository stores chats in the chats table.
type ChatRepository struct {
	store *Store
}

func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) (err error) {
	start := time.Now()
	defer func() { observe("chat_create", start, err) }()

	entity, err := entities.NewSchemaChat(chat)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode chat history", err, "0a1b2c3d-4e5f-4a6b-8c7d-8e9f0a1b2c3d")
	}
	if err = r.store.getTx(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create chat", err, "1b2c3d4e-5f6a-4b7c-9d8e-9f0a1b2c3d4e")
	}
	return nil
}

func (r *ChatRepository) FindByIDAndUser(ctx context.Context, chatID, userID string) (_ *domain.Chat, err error) {
	start := time.Now()
	defer func() { observe("chat_find", start, err) }()

	if !idgen.IsValidChatID(chatID) {
		return nil, notFound(ctx, nil)
	}

	var entity entities.Chat
	err = r.store.getTx(ctx).Where("id = ? AND user_id = ?", chatID, userID).Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(ctx, err)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to get chat", err, "2c3d4e5f-6a7b-4c8d-ae9f-0a1b2c3d4e5f")
	}

	chat, err := entity.EtoD()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to decode chat history", err, "3d4e5f6a-7b8c-4d9e-bf0a-1b2c3d4e5f6a")
	}
	return chat, nil
}

// AppendMessages concatenates onto the jsonb history in a single UPDATE. Postgres reports every
// row the WHERE clause matched as affected, so matched and modified are the same count here.
func (r *ChatRepository) AppendMessages(ctx context.Context, chatID, userID string, messages []domain.Message) (_ domain.UpdateResult, err error) {
	start := time.Now()
	defer func() { observe("chat_append", start, err) }()

	if !idgen.IsValidChatID(chatID) {
		return domain.UpdateResult{}, nil
	}

	payload, err := entities.MarshalMessages(messages)
	if err != nil {
		return domain.UpdateResult{}, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode messages", err, "4e5f6a7b-8c9d-4eaf-8a1b-2c3d4e5f6a7b")
	}

	res := appendMessages(r.store.getTx(ctx), chatID, userID, payload, time.Now().UTC())
	if err = res.Error; err != nil {
		return domain.UpdateResult{}, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to append messages", err, "5f6a7b8c-9dae-4fb0-9b2c-3d4e5f6a7b8c")
	}
	return domain.UpdateResult{MatchedCount: res.RowsAffected, ModifiedCount: res.RowsAffected}, nil
}

func appendMessages(tx *gorm.DB, chatID, userID string, payload []byte, now time.Time) *gorm.DB {
	return tx.Model(&entities.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Updates(map[string]any{
			"history":    gorm.Expr("history || ?::jsonb", string(payload)),
			"updated_at": now,
		})
}

const findOrphansQuery = `
SELECT c.id, c.user_id, c.created_at,
       COALESCE(c.history->0->'parts'->0->>'text', '') AS seed_text
FROM chats c
WHERE c.created_at < ?
  AND NOT EXISTS (
    SELECT 1 FROM user_chats u
    WHERE u.user_id = c.user_id
      AND u.chats @> jsonb_build_array(jsonb_build_object('_id', c.id))
  )
ORDER BY c.created_at ASC`

type orphanRow struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	SeedText  string
}

// FindOrphans lists chats whose id is absent from the owner's index row.
func (r *ChatRepository) FindOrphans(ctx context.Context, createdBefore time.Time, limit int) (_ []domain.Orphan, err error) {
	start := time.Now()
	defer func() { observe("chat_find_orphans", start, err) }()

	query := findOrphansQuery
	args := []any{createdBefore}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []orphanRow
	if err = r.store.getTx(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find orphaned chats", err, "6a7b8c9d-aebf-4ac1-8c3d-4e5f6a7b8c9d")
	}

	orphans := make([]domain.Orphan, 0, len(rows))
	for _, row := range rows {
		orphans = append(orphans, domain.Orphan{
			ChatID:    row.ID,
			UserID:    row.UserID,
			SeedText:  row.SeedText,
			CreatedAt: row.CreatedAt,
		})
	}
	return orphans, nil
}

func notFound(ctx context.Context, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"chat not found", err, "7b8c9dae-bfc0-4bd2-9d4e-5f6a7b8c9dae")
}
