package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionPayloadKey returns the cache key for a question's student-facing payload.
func (r *CacheKeyStruct) QuestionPayloadKey(slug string) string {
	return fmt.Sprintf("question:%s:payload", slug)
}

// AnswerKeyHash returns the cache key for the privileged answer-key hash
// (question ID → correct option ID). Scorer-only.
func (r *CacheKeyStruct) AnswerKeyHash() string {
	return "questions:answer_key"
}

// SessionDeadlineIndex returns the key of the sorted set indexing in-progress
// sessions by their expiry time (score = unix seconds of expires_at).
func (r *CacheKeyStruct) SessionDeadlineIndex() string {
	return "sessions:deadlines"
}

var CacheKey = NewCacheKeyStruct()
