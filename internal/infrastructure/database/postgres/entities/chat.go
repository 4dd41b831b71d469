package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	domain "github.com/janhq/chat-api/internal/domain/chat"
)

// Chat is the persisted chat row. History holds the message array as jsonb.
type Chat struct {
	ID        string         `gorm:"type:char(24);primaryKey"`
	UserID    string         `gorm:"type:varchar(128);index:idx_chats_user_created;not null"`
	History   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt time.Time      `gorm:"index:idx_chats_user_created;index:idx_chats_created;not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (Chat) TableName() string {
	return "chats"
}

// UserChats is the per-user index row. Chats holds the summary array as jsonb.
type UserChats struct {
	UserID    string         `gorm:"type:varchar(128);primaryKey"`
	Chats     datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (UserChats) TableName() string {
	return "user_chats"
}

// NewSchemaChat creates a database entity from the domain chat.
func NewSchemaChat(c *domain.Chat) (*Chat, error) {
	history, err := MarshalMessages(c.History)
	if err != nil {
		return nil, err
	}
	return &Chat{
		ID:        c.ID,
		UserID:    c.UserID,
		History:   history,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

// EtoD converts the database entity to the domain chat.
func (c *Chat) EtoD() (*domain.Chat, error) {
	history := []domain.Message{}
	if len(c.History) > 0 {
		if err := json.Unmarshal(c.History, &history); err != nil {
			return nil, err
		}
	}
	return &domain.Chat{
		ID:        c.ID,
		UserID:    c.UserID,
		History:   history,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}, nil
}

// MarshalMessages encodes messages as a jsonb array.
func MarshalMessages(messages []domain.Message) (datatypes.JSON, error) {
	if messages == nil {
		messages = []domain.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// MarshalSummaries encodes summaries as a jsonb array.
func MarshalSummaries(summaries []domain.Summary) (datatypes.JSON, error) {
	if summaries == nil {
		summaries = []domain.Summary{}
	}
	raw, err := json.Marshal(summaries)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// EtoD decodes the index row into summaries in insertion order.
func (u *UserChats) EtoD() ([]domain.Summary, error) {
	summaries := []domain.Summary{}
	if len(u.Chats) > 0 {
		if err := json.Unmarshal(u.Chats, &summaries); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}
