package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/infrastructure/database/postgres/entities"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// IndexRepository stores one user_chats row per user.
type IndexRepository struct {
	store *Store
}

// AppendSummary inserts the row or appends to it with INSERT ... ON CONFLICT, so concurrent first
// writers for the same user both land in one row.
func (r *IndexRepository) AppendSummary(ctx context.Context, userID string, summary domain.Summary) (err error) {
	start := time.Now()
	defer func() { observe("index_append", start, err) }()

	chats, err := entities.MarshalSummaries([]domain.Summary{summary})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode summary", err, "8c9daebf-c0d1-4ce3-ae5f-6a7b8c9daebf")
	}

	now := time.Now().UTC()
	entity := &entities.UserChats{
		UserID:    userID,
		Chats:     chats,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = upsertSummaries(r.store.getTx(ctx), entity).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to update user chat index", err, "9daebfc0-d1e2-4df4-bf6a-7b8c9daebfc0")
	}
	return nil
}

// ListSummaries returns the user's summaries in insertion order. A user without a row has none.
func (r *IndexRepository) ListSummaries(ctx context.Context, userID string) (_ []domain.Summary, err error) {
	start := time.Now()
	defer func() { observe("index_list", start, err) }()

	var entity entities.UserChats
	err = r.store.getTx(ctx).Where("user_id = ?", userID).Take(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []domain.Summary{}, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to get user chat index", err, "aebfc0d1-e2f3-4e05-8a7b-8c9daebfc0d1")
	}

	summaries, err := entity.EtoD()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to decode user chat index", err, "bfc0d1e2-f3a4-4f16-9b8c-9daebfc0d1e2")
	}
	return summaries, nil
}

func upsertSummaries(tx *gorm.DB, entity *entities.UserChats) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"chats":      gorm.Expr("user_chats.chats || EXCLUDED.chats"),
			"updated_at": gorm.Expr("EXCLUDED.updated_at"),
		}),
	}).Create(entity)
}
