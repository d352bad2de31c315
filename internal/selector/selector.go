// Package selector assembles a session's question sequence: a uniformly
// random, duplicate-free ordered subset of the active question pool.
package selector

import (
	"errors"
	"math/rand"

	"github.com/numerix/numerix-backend/internal/model"
)

var (
	// ErrInsufficientPool means the active pool is smaller than the requested
	// sequence length. This is an operator-visible configuration problem, not
	// a client mistake.
	ErrInsufficientPool = errors.New("not enough active questions in the pool")

	// ErrInvalidCount means the requested sequence length is not positive.
	ErrInvalidCount = errors.New("selection count must be positive")
)

// Select draws count distinct questions from pool in uniformly random order.
// It shuffles a copy of the full pool (Fisher–Yates via rand.Shuffle) and
// truncates, so no duplicates are possible and no rejection loop is needed.
// The caller supplies the entropy source; a seeded rand makes selection
// deterministic for tests. The input pool is never mutated.
func Select(pool []model.QuestionRef, count int, rng *rand.Rand) ([]model.QuestionRef, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if len(pool) < count {
		return nil, ErrInsufficientPool
	}

	shuffled := make([]model.QuestionRef, len(pool))
	copy(shuffled, pool)

	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[:count], nil
}
