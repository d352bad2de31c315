package model

import (
	"time"

	"github.com/google/uuid"
)

// Question represents a single question in the numerology question bank.
type Question struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Difficulty  string    `json:"difficulty"`
	Explanation string    `json:"explanation"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Answers     []Answer  `json:"answers,omitempty"`
}

// Answer is one of a question's options. Every question carries at least two
// answers with exactly one flagged correct.
type Answer struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"is_correct"`
}

// QuestionRef is the lightweight handle the selector works over.
type QuestionRef struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
}

// AnswerOption is an answer stripped of its correctness flag.
type AnswerOption struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// QuestionForStudent is a question as served during an attempt - the
// correctness flags are withheld.
type QuestionForStudent struct {
	ID         uuid.UUID      `json:"id"`
	Slug       string         `json:"slug"`
	Title      string         `json:"title"`
	Category   string         `json:"category"`
	Difficulty string         `json:"difficulty"`
	Options    []AnswerOption `json:"answers"`
}

// ForStudent strips the correctness flags off a question for serving during
// an attempt.
func (q *Question) ForStudent() *QuestionForStudent {
	options := make([]AnswerOption, len(q.Answers))
	for i, a := range q.Answers {
		options[i] = AnswerOption{ID: a.ID, Text: a.Text}
	}
	return &QuestionForStudent{
		ID:         q.ID,
		Slug:       q.Slug,
		Title:      q.Title,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Options:    options,
	}
}

// AnswerInput is one answer row in a create/update question payload.
// ID is set for answers that already exist (update path).
type AnswerInput struct {
	ID        *uuid.UUID `json:"id" binding:"omitempty"`
	Text      string     `json:"text" binding:"required,min=1,max=500"`
	IsCorrect bool       `json:"is_correct"`
}

// CreateQuestionRequest is the payload for adding a question to the bank.
type CreateQuestionRequest struct {
	Slug        string        `json:"slug" binding:"required,min=3,max=255"`
	Title       string        `json:"title" binding:"required,min=3,max=2000"`
	Category    string        `json:"category" binding:"omitempty,max=255"`
	Difficulty  string        `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Explanation string        `json:"explanation" binding:"omitempty,max=5000"`
	Active      *bool         `json:"active" binding:"omitempty"`
	Answers     []AnswerInput `json:"answers" binding:"required,min=2,dive"`
}

// UpdateQuestionRequest is the payload for editing an existing question.
// Answers are reconciled against the stored set: rows with an ID are updated,
// rows without are inserted, stored rows missing from the list are deleted.
type UpdateQuestionRequest struct {
	Title       string        `json:"title" binding:"omitempty,min=3,max=2000"`
	Category    string        `json:"category" binding:"omitempty,max=255"`
	Difficulty  string        `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Explanation *string       `json:"explanation" binding:"omitempty,max=5000"`
	Active      *bool         `json:"active" binding:"omitempty"`
	Answers     []AnswerInput `json:"answers" binding:"omitempty,min=2,dive"`
}
