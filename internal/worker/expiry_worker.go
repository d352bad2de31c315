// Package worker holds the background loops that run beside the HTTP server.
package worker

import (
	"context"
	"time"

	"github.com/numerix/numerix-backend/internal/cache"
	"github.com/numerix/numerix-backend/internal/service"
	"github.com/rs/zerolog"
)

const (
	// ExpiryPollInterval is how often the Redis deadline index is checked.
	ExpiryPollInterval = 1 * time.Second

	// ExpiryBatchSize caps how many overdue sessions one tick processes.
	ExpiryBatchSize = 100
)

// ExpiryWorker force-completes sessions whose deadline has passed without a
// client completion signal (closed tab, dead battery). The Redis sorted set is
// the fast path; a periodic full PostgreSQL scan catches sessions the index
// lost, so the timer holds even if Redis was flushed.
type ExpiryWorker struct {
	sessions      *service.ExamSessionService
	deadlines     *cache.DeadlineIndex
	sweepInterval time.Duration
	log           zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(
	sessions *service.ExamSessionService,
	deadlines *cache.DeadlineIndex,
	sweepInterval time.Duration,
	log zerolog.Logger,
) *ExpiryWorker {
	return &ExpiryWorker{
		sessions:      sessions,
		deadlines:     deadlines,
		sweepInterval: sweepInterval,
		log:           log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start runs the worker loop until the context is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ExpiryWorker started")

	poll := time.NewTicker(ExpiryPollInterval)
	defer poll.Stop()

	sweep := time.NewTicker(w.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return

		case <-poll.C:
			w.drainIndex(ctx)

		case <-sweep.C:
			w.sweepDatabase(ctx)
		}
	}
}

// drainIndex completes every session the Redis index reports as due.
func (w *ExpiryWorker) drainIndex(ctx context.Context) {
	due, err := w.deadlines.Due(ctx, time.Now(), ExpiryBatchSize)
	if err != nil {
		w.log.Warn().Err(err).Msg("Deadline index read failed")
		return
	}

	for _, id := range due {
		if err := w.sessions.ForceExpire(ctx, id); err != nil {
			w.log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to expire session")
			continue
		}
		w.log.Info().Str("session_id", id.String()).Msg("Session expired by sweeper")
	}
}

// sweepDatabase scans PostgreSQL directly for overdue in-progress sessions.
// Safety net for index entries lost to Redis eviction or restarts.
func (w *ExpiryWorker) sweepDatabase(ctx context.Context) {
	ids, err := w.sessions.ExpiredSessions(ctx, ExpiryBatchSize)
	if err != nil {
		w.log.Warn().Err(err).Msg("Expired-session scan failed")
		return
	}
	if len(ids) == 0 {
		return
	}

	w.log.Info().Int("count", len(ids)).Msg("DB sweep found overdue sessions")
	for _, id := range ids {
		if err := w.sessions.ForceExpire(ctx, id); err != nil {
			w.log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to expire session")
		}
	}
}
