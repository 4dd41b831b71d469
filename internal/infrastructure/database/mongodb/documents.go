package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	domain "github.com/janhq/chat-api/internal/domain/chat"
)

type partDocument struct {
	Text string `bson:"text"`
}

type messageDocument struct {
	Role  string         `bson:"role"`
	Parts []partDocument `bson:"parts"`
	Img   string         `bson:"img,omitempty"`
}

type chatDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"userId"`
	History   []messageDocument  `bson:"history"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type summaryDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type userChatsDocument struct {
	UserID    string            `bson:"userId"`
	Chats     []summaryDocument `bson:"chats"`
	CreatedAt time.Time         `bson:"createdAt"`
	UpdatedAt time.Time         `bson:"updatedAt"`
}

type orphanDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    string             `bson:"userId"`
	CreatedAt time.Time          `bson:"createdAt"`
	Seed      messageDocument    `bson:"seed"`
}

func toMessageDocuments(messages []domain.Message) []messageDocument {
	docs := make([]messageDocument, 0, len(messages))
	for _, m := range messages {
		parts := make([]partDocument, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, partDocument{Text: p.Text})
		}
		docs = append(docs, messageDocument{Role: string(m.Role), Parts: parts, Img: m.Img})
	}
	return docs
}

func (d chatDocument) toDomain() domain.Chat {
	history := make([]domain.Message, 0, len(d.History))
	for _, m := range d.History {
		parts := make([]domain.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, domain.Part{Text: p.Text})
		}
		history = append(history, domain.Message{Role: domain.Role(m.Role), Parts: parts, Img: m.Img})
	}
	return domain.Chat{
		ID:        d.ID.Hex(),
		UserID:    d.UserID,
		History:   history,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (d orphanDocument) toDomain() domain.Orphan {
	seed := ""
	if len(d.Seed.Parts) > 0 {
		seed = d.Seed.Parts[0].Text
	}
	return domain.Orphan{
		ChatID:    d.ID.Hex(),
		UserID:    d.UserID,
		SeedText:  seed,
		CreatedAt: d.CreatedAt,
	}
}
