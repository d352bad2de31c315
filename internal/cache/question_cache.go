// Package cache holds the Redis fast lane: student-facing question payloads,
// the privileged answer-key hash, and the session deadline index. Every read
// has a PostgreSQL failover that self-heals the cache, so Redis eviction never
// changes behavior.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/numerix/numerix-backend/internal/config"
	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/repository"
	"github.com/numerix/numerix-backend/internal/scorer"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// QuestionCache serves attempt-time question reads and the scorer's answer
// key from Redis, with the question repository as the source of truth.
type QuestionCache struct {
	rdb       *redis.Client
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewQuestionCache creates a new QuestionCache.
func NewQuestionCache(rdb *redis.Client, questions *repository.QuestionRepository, log zerolog.Logger) *QuestionCache {
	return &QuestionCache{
		rdb:       rdb,
		questions: questions,
		log:       log.With().Str("component", "question_cache").Logger(),
	}
}

// Warm loads every active question's student payload and the full answer key
// into Redis. Called on boot and after every admin write to the bank.
func (c *QuestionCache) Warm(ctx context.Context) error {
	refs, err := c.questions.ListActiveRefs(ctx)
	if err != nil {
		return fmt.Errorf("list active questions: %w", err)
	}

	key, err := c.questions.AnswerKey(ctx)
	if err != nil {
		return fmt.Errorf("load answer key: %w", err)
	}

	answerKey := make(map[string]interface{}, len(key))
	for questionID, answerID := range key {
		answerKey[questionID.String()] = answerID.String()
	}

	pipe := c.rdb.Pipeline()
	for _, ref := range refs {
		q, err := c.questions.GetBySlug(ctx, ref.Slug)
		if err != nil {
			return fmt.Errorf("load question %s: %w", ref.Slug, err)
		}
		payload, err := json.Marshal(q.ForStudent())
		if err != nil {
			return fmt.Errorf("marshal payload %s: %w", ref.Slug, err)
		}
		pipe.Set(ctx, config.CacheKey.QuestionPayloadKey(ref.Slug), payload, 0)
	}
	pipe.Del(ctx, config.CacheKey.AnswerKeyHash())
	if len(answerKey) > 0 {
		pipe.HSet(ctx, config.CacheKey.AnswerKeyHash(), answerKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	c.log.Debug().Int("questions", len(refs)).Msg("Question cache warmed")
	return nil
}

// GetForAttempt returns a question without correctness flags. Cache hit skips
// PostgreSQL entirely; a miss or Redis error falls back to the repository and
// re-caches.
func (c *QuestionCache) GetForAttempt(ctx context.Context, slug string) (*model.QuestionForStudent, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.QuestionPayloadKey(slug)).Result()
	if err == nil {
		q := &model.QuestionForStudent{}
		if err := json.Unmarshal([]byte(raw), q); err == nil {
			return q, nil
		}
		// Corrupt entry - fall through to the DB and overwrite it.
		c.log.Warn().Str("slug", slug).Msg("Corrupt cached question payload")
	} else if err != redis.Nil {
		c.log.Warn().Err(err).Str("slug", slug).Msg("Redis read failed, falling back to DB")
	}

	question, err := c.questions.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	payload := question.ForStudent()

	// Self-heal so the next read is fast. Best effort.
	if raw, err := json.Marshal(payload); err == nil {
		_ = c.rdb.Set(ctx, config.CacheKey.QuestionPayloadKey(slug), raw, 0).Err()
	}

	return payload, nil
}

// AnswerKey returns the question → correct-option mapping for grading, from
// the Redis hash when possible, from PostgreSQL otherwise.
func (c *QuestionCache) AnswerKey(ctx context.Context) (scorer.AnswerKey, error) {
	entries, err := c.rdb.HGetAll(ctx, config.CacheKey.AnswerKeyHash()).Result()
	if err == nil && len(entries) > 0 {
		key := make(scorer.AnswerKey, len(entries))
		valid := true
		for q, a := range entries {
			questionID, qErr := uuid.Parse(q)
			answerID, aErr := uuid.Parse(a)
			if qErr != nil || aErr != nil {
				valid = false
				break
			}
			key[questionID] = answerID
		}
		if valid {
			return key, nil
		}
		c.log.Warn().Msg("Corrupt cached answer key, rebuilding from DB")
	} else if err != nil {
		c.log.Warn().Err(err).Msg("Redis read failed, loading answer key from DB")
	}

	key, err := c.questions.AnswerKey(ctx)
	if err != nil {
		return nil, err
	}

	// Self-heal the hash for the next grading pass.
	if len(key) > 0 {
		entries := make(map[string]interface{}, len(key))
		for questionID, answerID := range key {
			entries[questionID.String()] = answerID.String()
		}
		_ = c.rdb.HSet(ctx, config.CacheKey.AnswerKeyHash(), entries).Err()
	}

	return scorer.AnswerKey(key), nil
}
