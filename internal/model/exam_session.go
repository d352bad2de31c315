package model

import (
	"time"

	"github.com/google/uuid"
)

// CompletionReason records what triggered a session's completion.
type CompletionReason string

const (
	CompletionReasonAllAnswered CompletionReason = "ALL_ANSWERED"
	CompletionReasonTimeExpired CompletionReason = "TIME_EXPIRED"
)

// ExamSession represents one student's attempt. It is created with its full
// question sequence and transitions to completed exactly once; a nil
// CompletedAt means the attempt is still in progress.
type ExamSession struct {
	ID             uuid.UUID         `json:"id"`
	StudentName    string            `json:"student_name"`
	StudentEmail   string            `json:"student_email"`
	StartedAt      time.Time         `json:"started_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
	TimeExpired    bool              `json:"time_expired"`
	TotalQuestions int               `json:"total_questions"`
	Score          *float64          `json:"score,omitempty"`
	Passed         *bool             `json:"passed,omitempty"`
	Questions      []SessionQuestion `json:"questions,omitempty"`
}

// Completed reports whether the session has reached its terminal state.
func (s *ExamSession) Completed() bool {
	return s.CompletedAt != nil
}

// SessionQuestion binds one question to its position in a session's fixed
// sequence, plus the recorded answer if any. Positions are a contiguous
// 0..N-1 permutation.
type SessionQuestion struct {
	QuestionID uuid.UUID  `json:"question_id"`
	Slug       string     `json:"slug"`
	Position   int        `json:"position"`
	UserAnswer *uuid.UUID `json:"user_answer,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// MissedQuestion is one entry of a result's failed-question review list.
type MissedQuestion struct {
	Title         string `json:"title"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// ExamResult is the derived outcome of a completed session.
type ExamResult struct {
	TotalQuestions  int              `json:"total_questions"`
	CorrectAnswers  int              `json:"correct_answers"`
	Score           float64          `json:"score"`
	Passed          bool             `json:"passed"`
	Reason          CompletionReason `json:"reason"`
	CompletedAt     time.Time        `json:"completed_at"`
	FailedQuestions []MissedQuestion `json:"failed_questions"`
}

// InitializeExamRequest is the payload for starting a new attempt.
type InitializeExamRequest struct {
	StudentName  string `json:"student_name" binding:"required,min=1,max=120"`
	StudentEmail string `json:"student_email" binding:"required,email,max=255"`
}

// InitializeExamResponse returns the session handle and its question sequence.
type InitializeExamResponse struct {
	SessionID       uuid.UUID `json:"session_id"`
	QuestionSlugs   []string  `json:"question_slugs"`
	TotalQuestions  int       `json:"total_questions"`
	ExpiresAt       time.Time `json:"expires_at"`
	DurationSeconds int       `json:"duration_seconds"`
}

// SubmitAnswerRequest records one chosen option.
type SubmitAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	AnswerID   uuid.UUID `json:"answer_id" binding:"required"`
}

// SubmitAnswerResponse reports whether the attempt just completed and, if not,
// which question comes next in sequence order.
type SubmitAnswerResponse struct {
	ExamCompleted    bool    `json:"exam_completed"`
	NextQuestionSlug *string `json:"next_question_slug,omitempty"`
}

// CompleteExamRequest is the payload of an explicit completion signal.
type CompleteExamRequest struct {
	TimeExpired bool `json:"time_expired"`
}

// CompleteExamResponse acknowledges a completion signal. AlreadyCompleted is
// true when the signal raced an earlier one and was absorbed as a no-op.
type CompleteExamResponse struct {
	AlreadyCompleted bool `json:"already_completed"`
}

// SessionSummary is one row of the admin session report.
type SessionSummary struct {
	ID           uuid.UUID  `json:"id"`
	StudentName  string     `json:"student_name"`
	StudentEmail string     `json:"student_email"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	TimeExpired  bool       `json:"time_expired"`
	Score        *float64   `json:"score,omitempty"`
	Passed       *bool      `json:"passed,omitempty"`
}
