package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/numerix/numerix-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DeadlineIndex tracks in-progress sessions by expiry time in a Redis sorted
// set (score = unix seconds). The deadline sweeper polls it to force-complete
// expired sessions without scanning PostgreSQL on every tick; the periodic DB
// sweep catches anything the index lost.
type DeadlineIndex struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewDeadlineIndex creates a new DeadlineIndex.
func NewDeadlineIndex(rdb *redis.Client, log zerolog.Logger) *DeadlineIndex {
	return &DeadlineIndex{
		rdb: rdb,
		log: log.With().Str("component", "deadline_index").Logger(),
	}
}

// Track registers a session's deadline. Best effort - the DB sweep is the
// safety net, so a Redis failure here must not fail session creation.
func (d *DeadlineIndex) Track(ctx context.Context, sessionID uuid.UUID, deadline time.Time) {
	err := d.rdb.ZAdd(ctx, config.CacheKey.SessionDeadlineIndex(), redis.Z{
		Score:  float64(deadline.Unix()),
		Member: sessionID.String(),
	}).Err()
	if err != nil {
		d.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to index deadline")
	}
}

// Forget drops a completed session from the index.
func (d *DeadlineIndex) Forget(ctx context.Context, sessionID uuid.UUID) {
	if err := d.rdb.ZRem(ctx, config.CacheKey.SessionDeadlineIndex(), sessionID.String()).Err(); err != nil {
		d.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to unindex deadline")
	}
}

// Due returns up to limit sessions whose deadline is at or before now.
func (d *DeadlineIndex) Due(ctx context.Context, now time.Time, limit int64) ([]uuid.UUID, error) {
	members, err := d.rdb.ZRangeByScore(ctx, config.CacheKey.SessionDeadlineIndex(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			// Junk member - drop it so it never comes back.
			d.log.Warn().Str("member", m).Msg("Dropping malformed deadline entry")
			_ = d.rdb.ZRem(ctx, config.CacheKey.SessionDeadlineIndex(), m).Err()
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
