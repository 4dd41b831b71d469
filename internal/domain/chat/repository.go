package chat

import (
	"context"
	"time"
)

// ChatRepository persists chat documents.
type ChatRepository interface {
	Create(ctx context.Context, chat *Chat) error
	// FindByIDAndUser must match on both fields; a chat owned by someone else is reported as not found.
	FindByIDAndUser(ctx context.Context, chatID, userID string) (*Chat, error)
	// AppendMessages pushes messages onto the history of the matching document in one atomic update.
	AppendMessages(ctx context.Context, chatID, userID string, messages []Message) (UpdateResult, error)
	// FindOrphans lists chats created before the cutoff that have no entry in their owner's index.
	FindOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]Orphan, error)
}

// IndexRepository persists the per-user list of chat summaries.
type IndexRepository interface {
	// AppendSummary creates the user's index when missing and appends the summary, as one upsert.
	AppendSummary(ctx context.Context, userID string, summary Summary) error
	ListSummaries(ctx context.Context, userID string) ([]Summary, error)
}

// Transactor runs fn inside a multi-document transaction. Repositories pick the transaction up from ctx.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
