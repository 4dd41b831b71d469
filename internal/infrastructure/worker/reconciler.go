package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/janhq/chat-api/internal/domain/chat"
	"github.com/janhq/chat-api/internal/infrastructure/lock"
	"github.com/janhq/chat-api/internal/infrastructure/metrics"
)

const reconcileLockName = "chat-api:reconcile-orphans"

// ReconcilerConfig controls the orphan repair loop.
type ReconcilerConfig struct {
	Interval time.Duration
	Grace    time.Duration
	Batch    int
}

// Reconciler periodically adds missing index entries for chats whose second write failed.
type Reconciler struct {
	cfg          ReconcilerConfig
	service      chat.Service
	locker       lock.Locker
	instrumenter *Instrumenter
	log          zerolog.Logger
}

func NewReconciler(cfg ReconcilerConfig, service chat.Service, locker lock.Locker, instrumenter *Instrumenter, log zerolog.Logger) *Reconciler {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Reconciler{
		cfg:          cfg,
		service:      service,
		locker:       locker,
		instrumenter: instrumenter,
		log:          log.With().Str("component", "reconciler").Logger(),
	}
}

// Run ticks until ctx is done. A non-positive interval returns immediately.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.cfg.Interval <= 0 {
		return nil
	}
	r.log.Info().Dur("interval", r.cfg.Interval).Dur("grace", r.cfg.Grace).Msg("orphan reconciler started")

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("orphan reconciler stopped")
			return nil
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass under the shared lock and returns how many chats it repaired.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	repaired := 0
	pass := func(ctx context.Context) error {
		return r.locker.WithLock(ctx, reconcileLockName, r.lockTTL(), func(ctx context.Context) error {
			n, err := r.service.ReconcileOrphans(ctx, r.cfg.Grace, r.cfg.Batch)
			repaired = n
			return err
		})
	}

	var err error
	if r.instrumenter != nil {
		err = r.instrumenter.InstrumentJob(ctx, "reconcile_orphans", pass)
	} else {
		err = pass(ctx)
	}

	switch {
	case errors.Is(err, lock.ErrNotAcquired):
		r.log.Debug().Msg("reconcile pass skipped; lock held elsewhere")
	case err != nil && ctx.Err() == nil:
		r.log.Error().Err(err).Msg("reconcile pass failed")
	}
	if repaired > 0 {
		metrics.OrphansRepairedTotal.Add(float64(repaired))
	}
	return repaired
}

// Close releases the lock backend.
func (r *Reconciler) Close() error {
	return r.locker.Close()
}

func (r *Reconciler) lockTTL() time.Duration {
	if r.cfg.Interval > 0 {
		return r.cfg.Interval
	}
	return time.Minute
}
