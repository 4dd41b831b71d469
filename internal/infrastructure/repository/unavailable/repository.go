package unavailable

import (
	"context"
	"errors"
	"time"

	domain "github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// Repository stands in for a store that could not be opened at startup. Every call fails with
// DATABASE_ERROR so the HTTP layer keeps serving and answers store-backed routes with a 500.
type Repository struct {
	cause error
}

// New records why the real store is missing.
func New(cause error) *Repository {
	if cause == nil {
		cause = errors.New("store not configured")
	}
	return &Repository{cause: cause}
}

func (r *Repository) fail(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
		"store unavailable", r.cause, "c0d1e2f3-a4b5-4027-8c9d-aebfc0d1e2f3")
}

func (r *Repository) Create(ctx context.Context, _ *domain.Chat) error {
	return r.fail(ctx)
}

func (r *Repository) FindByIDAndUser(ctx context.Context, _, _ string) (*domain.Chat, error) {
	return nil, r.fail(ctx)
}

func (r *Repository) AppendMessages(ctx context.Context, _, _ string, _ []domain.Message) (domain.UpdateResult, error) {
	return domain.UpdateResult{}, r.fail(ctx)
}

func (r *Repository) FindOrphans(ctx context.Context, _ time.Time, _ int) ([]domain.Orphan, error) {
	return nil, r.fail(ctx)
}

func (r *Repository) AppendSummary(ctx context.Context, _ string, _ domain.Summary) error {
	return r.fail(ctx)
}

func (r *Repository) ListSummaries(ctx context.Context, _ string) ([]domain.Summary, error) {
	return nil, r.fail(ctx)
}

// Ping always reports the original failure.
func (r *Repository) Ping(context.Context) error {
	return r.cause
}
