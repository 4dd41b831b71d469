package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// Repository is a thread-safe chat and index store useful for demos/tests.
// It implements both domain.ChatRepository and domain.IndexRepository.
type Repository struct {
	mu      sync.RWMutex
	chats   map[string]domain.Chat
	indexes map[string][]domain.Summary
}

// NewRepository returns an empty store.
func NewRepository() *Repository {
	return &Repository{
		chats:   make(map[string]domain.Chat),
		indexes: make(map[string][]domain.Summary),
	}
}

func (r *Repository) Create(ctx context.Context, chat *domain.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chats[chat.ID]; exists {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"duplicate chat id", nil, "0b6a3c1d-8e2f-4a57-b9c4-7d1e2f3a4b5c")
	}
	r.chats[chat.ID] = cloneChat(*chat)
	return nil
}

func (r *Repository) FindByIDAndUser(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.chats[chatID]
	if !ok || stored.UserID != userID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"chat not found", nil, "4c8d2e1f-6a3b-4c9d-8e7f-0a1b2c3d4e5f")
	}
	out := cloneChat(stored)
	return &out, nil
}

func (r *Repository) AppendMessages(ctx context.Context, chatID, userID string, messages []domain.Message) (domain.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.chats[chatID]
	if !ok || stored.UserID != userID {
		return domain.UpdateResult{}, nil
	}
	stored.History = append(stored.History, cloneMessages(messages)...)
	stored.UpdatedAt = time.Now().UTC()
	r.chats[chatID] = stored
	return domain.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *Repository) FindOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Orphan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexed := make(map[string]struct{})
	for _, summaries := range r.indexes {
		for _, s := range summaries {
			indexed[s.ChatID] = struct{}{}
		}
	}

	var orphans []domain.Orphan
	for _, c := range r.chats {
		if _, ok := indexed[c.ID]; ok || !c.CreatedAt.Before(createdBefore) {
			continue
		}
		orphans = append(orphans, domain.Orphan{
			ChatID:    c.ID,
			UserID:    c.UserID,
			SeedText:  c.SeedText(),
			CreatedAt: c.CreatedAt,
		})
	}
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].CreatedAt.Before(orphans[j].CreatedAt)
	})
	if limit > 0 && len(orphans) > limit {
		orphans = orphans[:limit]
	}
	return orphans, nil
}

func (r *Repository) AppendSummary(ctx context.Context, userID string, summary domain.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes[userID] = append(r.indexes[userID], summary)
	return nil
}

func (r *Repository) ListSummaries(ctx context.Context, userID string) ([]domain.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := r.indexes[userID]
	out := make([]domain.Summary, len(summaries))
	copy(out, summaries)
	return out, nil
}

// Ping always succeeds.
func (r *Repository) Ping(ctx context.Context) error {
	return nil
}

func cloneChat(c domain.Chat) domain.Chat {
	c.History = cloneMessages(c.History)
	return c
}

func cloneMessages(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, len(messages))
	for i, m := range messages {
		m.Parts = append([]domain.Part(nil), m.Parts...)
		out[i] = m
	}
	return out
}
