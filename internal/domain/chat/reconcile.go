package chat

import (
	"context"
	"time"

	"github.com/janhq/chat-api/internal/utils/platformerrors"
)

// ReconcileOrphans appends an index entry for every chat older than grace that its owner's index does not
// reference. It repairs the window left when a chat write succeeds and the following index write does not.
// The grace period keeps the pass away from creations that are still in flight.
func (s *service) ReconcileOrphans(ctx context.Context, grace time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-grace)
	orphans, err := s.chats.FindOrphans(ctx, cutoff, limit)
	if err != nil {
		return 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "find orphaned chats")
	}

	repaired := 0
	for _, orphan := range orphans {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		summary := Summary{
			ChatID:    orphan.ChatID,
			Title:     Title(orphan.SeedText),
			CreatedAt: orphan.CreatedAt,
		}
		if err := s.index.AppendSummary(ctx, orphan.UserID, summary); err != nil {
			s.log.Error().Err(err).
				Str("chat_id", orphan.ChatID).
				Str("user_id", orphan.UserID).
				Msg("repair index entry")
			continue
		}
		repaired++
	}

	if repaired > 0 {
		s.log.Info().Int("repaired", repaired).Int("found", len(orphans)).Msg("reconciled orphaned chats")
	}
	return repaired, nil
}
