package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// MaxTitleLength is the hard cut applied to seed text when it becomes an index title.
const MaxTitleLength = 40

// Part is a single text fragment of a message.
type Part struct {
	Text string `json:"text"`
}

// Message is one entry of a chat history.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
	Img   string `json:"img,omitempty"`
}

// Chat is a conversation thread owned by a single user.
type Chat struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	History   []Message `json:"history"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary references a chat from a user's index.
type Summary struct {
	ChatID    string    `json:"_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Orphan is a chat that has no entry in its owner's index.
type Orphan struct {
	ChatID    string
	UserID    string
	SeedText  string
	CreatedAt time.Time
}

// UpdateResult reports how many chat documents an append matched and modified.
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// NewUserMessage builds a user-authored message; img is attached only when non-empty.
func NewUserMessage(text, img string) Message {
	return Message{Role: RoleUser, Parts: []Part{{Text: text}}, Img: img}
}

// NewModelMessage builds a model-authored message.
func NewModelMessage(text string) Message {
	return Message{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// SeedText returns the text of the first message, which is the text the chat was created with.
func (c Chat) SeedText() string {
	if len(c.History) == 0 || len(c.History[0].Parts) == 0 {
		return ""
	}
	return c.History[0].Parts[0].Text
}

// Title cuts seed text to MaxTitleLength characters without regard for word boundaries.
func Title(seed string) string {
	runes := []rune(seed)
	if len(runes) <= MaxTitleLength {
		return seed
	}
	return string(runes[:MaxTitleLength])
}
