package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// IndexRepository stores one userchats document per user.
type IndexRepository struct {
	collection    *mongo.Collection
	ensureIndexes func(ctx context.Context) error
	log           zerolog.Logger
}

// AppendSummary upserts the user's index document and pushes the summary onto it in a single update.
// Two first-time writers for the same user can race on the unique userId index; the loser retries once
// and lands on the document the winner created. The unique index is created here first when startup
// could not reach the deployment.
func (r *IndexRepository) AppendSummary(ctx context.Context, userID string, summary domain.Summary) (err error) {
	start := time.Now()
	defer func() { observe("index_append", start, err) }()

	oid, err := primitive.ObjectIDFromHex(summary.ChatID)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"invalid chat id", err, "df8a9bac-bdce-4fd0-8142-6d7e8f9a0b12")
	}

	// Index builds cannot join a multi-document transaction.
	if r.ensureIndexes != nil && mongo.SessionFromContext(ctx) == nil {
		if ierr := r.ensureIndexes(ctx); ierr != nil {
			r.log.Warn().Err(ierr).Msg("userchats unique index missing; upserting without it")
		}
	}

	filter, update := appendSummaryUpdate(userID, oid, summary, time.Now().UTC())
	opts := options.Update().SetUpsert(true)

	_, err = r.collection.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		_, err = r.collection.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to update user chat index", err, "e09bacbd-cedf-4a01-9253-7e8f9a0b1c23")
	}
	return nil
}

// ListSummaries returns the user's summaries in insertion order. A user without a document has none.
func (r *IndexRepository) ListSummaries(ctx context.Context, userID string) (_ []domain.Summary, err error) {
	start := time.Now()
	defer func() { observe("index_list", start, err) }()

	var doc userChatsDocument
	err = r.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []domain.Summary{}, nil
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to get user chat index", err, "f1acbdce-dfe0-4b12-a364-8f9a0b1c2d34")
	}

	summaries := make([]domain.Summary, 0, len(doc.Chats))
	for _, c := range doc.Chats {
		summaries = append(summaries, domain.Summary{
			ChatID:    c.ID.Hex(),
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
		})
	}
	return summaries, nil
}

func appendSummaryUpdate(userID string, oid primitive.ObjectID, summary domain.Summary, now time.Time) (bson.M, bson.M) {
	filter := bson.M{"userId": userID}
	update := bson.M{
		"$push": bson.M{"chats": summaryDocument{
			ID:        oid,
			Title:     summary.Title,
			CreatedAt: summary.CreatedAt,
		}},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	return filter, update
}
