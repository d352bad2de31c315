package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/scorer"
)

// SessionStore is the persistence surface of the session lifecycle.
// Implemented by repository.ExamSessionRepository; faked in tests.
type SessionStore interface {
	CreateWithSlots(ctx context.Context, s *model.ExamSession, selection []model.QuestionRef) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	GetWithSlots(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	RecordAnswer(ctx context.Context, sessionID, questionID, answerID uuid.UUID, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, reason model.CompletionReason, score float64, passed bool, at time.Time) (bool, error)
	ListSummaries(ctx context.Context, limit, offset int) ([]model.SessionSummary, int, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

// QuestionSource supplies the selection pool and review-list data.
// Implemented by repository.QuestionRepository.
type QuestionSource interface {
	ListActiveRefs(ctx context.Context) ([]model.QuestionRef, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// AnswerKeySource supplies the privileged grading key. Implemented by
// cache.QuestionCache (Redis fast lane with DB failover).
type AnswerKeySource interface {
	AnswerKey(ctx context.Context) (scorer.AnswerKey, error)
}

// DeadlineTracker indexes in-progress sessions for the deadline sweeper.
// Implemented by cache.DeadlineIndex. Best effort by contract - the DB sweep
// is the safety net.
type DeadlineTracker interface {
	Track(ctx context.Context, sessionID uuid.UUID, deadline time.Time)
	Forget(ctx context.Context, sessionID uuid.UUID)
}

// SettingsProvider resolves the exam configuration (duration, pass threshold,
// question count). Implemented by SettingService.
type SettingsProvider interface {
	ExamSettings(ctx context.Context) (model.ExamSettings, error)
}
