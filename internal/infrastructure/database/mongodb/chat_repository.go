package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	domain "github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// ChatRepository stores chats in the chats collection.
type ChatRepository struct {
	collection *mongo.Collection
	userChats  *mongo.Collection
}

func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) (err error) {
	start := time.Now()
	defer func() { observe("chat_create", start, err) }()

	oid, err := primitive.ObjectIDFromHex(chat.ID)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"invalid chat id", err, "6e1f2a3b-4c5d-4e6f-8a7b-9c0d1e2f3a4b")
	}
	doc := chatDocument{
		ID:        oid,
		UserID:    chat.UserID,
		History:   toMessageDocuments(chat.History),
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
	}
	if _, err = r.collection.InsertOne(ctx, doc); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create chat", err, "7f2a3b4c-5d6e-4f7a-9b8c-0d1e2f3a4b5c")
	}
	return nil
}

func (r *ChatRepository) FindByIDAndUser(ctx context.Context, chatID, userID string) (_ *domain.Chat, err error) {
	start := time.Now()
	defer func() { observe("chat_find", start, err) }()

	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, notFound(ctx, err)
	}

	var doc chatDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid, "userId": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(ctx, err)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to get chat", err, "8a3b4c5d-6e7f-4a8b-ac9d-1e2f3a4b5c6d")
	}
	chat := doc.toDomain()
	return &chat, nil
}

// AppendMessages pushes messages in one $push/$each update so the pair lands atomically on the document.
// The result carries the matched count: an update that matched but changed nothing still counts as found.
func (r *ChatRepository) AppendMessages(ctx context.Context, chatID, userID string, messages []domain.Message) (_ domain.UpdateResult, err error) {
	start := time.Now()
	defer func() { observe("chat_append", start, err) }()

	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return domain.UpdateResult{}, nil
	}

	filter, update := appendMessagesUpdate(oid, userID, messages, time.Now().UTC())
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return domain.UpdateResult{}, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to append messages", err, "9b4c5d6e-7f8a-4b9c-8d0e-2f3a4b5c6d7e")
	}
	return domain.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

// FindOrphans joins chats against userchats and keeps chats whose id is missing from the owner's index.
func (r *ChatRepository) FindOrphans(ctx context.Context, createdBefore time.Time, limit int) (_ []domain.Orphan, err error) {
	start := time.Now()
	defer func() { observe("chat_find_orphans", start, err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$lt": createdBefore}}}},
		{{Key: "$lookup", Value: bson.M{
			"from": r.userChats.Name(),
			"let":  bson.M{"cid": "$_id", "uid": "$userId"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$userId", "$$uid"}},
					bson.M{"$in": bson.A{"$$cid", bson.M{"$ifNull": bson.A{"$chats._id", bson.A{}}}}},
				}}}},
				bson.M{"$project": bson.M{"_id": 1}},
			},
			"as": "indexed",
		}}},
		{{Key: "$match", Value: bson.M{"indexed": bson.M{"$size": 0}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{
		"userId":    1,
		"createdAt": 1,
		"seed":      bson.M{"$arrayElemAt": bson.A{"$history", 0}},
	}}})

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find orphaned chats", err, "ac5d6e7f-8a9b-4cad-9e1f-3a4b5c6d7e8f")
	}
	defer cursor.Close(ctx)

	var docs []orphanDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to decode orphaned chats", err, "bd6e7f8a-9bac-4dbe-af20-4b5c6d7e8f90")
	}

	orphans := make([]domain.Orphan, 0, len(docs))
	for _, d := range docs {
		orphans = append(orphans, d.toDomain())
	}
	return orphans, nil
}

// appendMessagesUpdate filters on owner as well as id so a foreign chat matches nothing.
func appendMessagesUpdate(oid primitive.ObjectID, userID string, messages []domain.Message, now time.Time) (bson.M, bson.M) {
	filter := bson.M{"_id": oid, "userId": userID}
	update := bson.M{
		"$push": bson.M{"history": bson.M{"$each": toMessageDocuments(messages)}},
		"$set":  bson.M{"updatedAt": now},
	}
	return filter, update
}

func notFound(ctx context.Context, err error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"chat not found", err, "ce7f8a9b-acbd-4ecf-b031-5c6d7e8f9a01")
}
