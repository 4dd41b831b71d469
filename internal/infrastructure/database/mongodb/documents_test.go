package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domain "github.com/janhq/chat-api/internal/domain/chat"
)

func TestMessageDocumentsOmitEmptyImage(t *testing.T) {
	docs := toMessageDocuments([]domain.Message{
		domain.NewUserMessage("q", ""),
		domain.NewUserMessage("q", "https://cdn/a.png"),
	})

	raw, err := bson.Marshal(docs[0])
	assert.NoError(t, err)
	var plain bson.M
	assert.NoError(t, bson.Unmarshal(raw, &plain))
	_, hasImg := plain["img"]
	assert.False(t, hasImg)

	assert.Equal(t, "https://cdn/a.png", docs[1].Img)
}

func TestChatDocumentToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := chatDocument{
		ID:     oid,
		UserID: "u1",
		History: []messageDocument{
			{Role: "user", Parts: []partDocument{{Text: "hello"}}},
			{Role: "model", Parts: []partDocument{{Text: "hi"}}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	chat := doc.toDomain()
	assert.Equal(t, oid.Hex(), chat.ID)
	assert.Equal(t, "hello", chat.SeedText())
	assert.Equal(t, domain.RoleModel, chat.History[1].Role)
}

func TestOrphanDocumentToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	orphan := orphanDocument{ID: oid, UserID: "u1", Seed: messageDocument{Parts: []partDocument{{Text: "first"}}}}.toDomain()
	assert.Equal(t, oid.Hex(), orphan.ChatID)
	assert.Equal(t, "first", orphan.SeedText)

	empty := orphanDocument{ID: oid}.toDomain()
	assert.Empty(t, empty.SeedText)
}
