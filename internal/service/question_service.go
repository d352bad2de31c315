package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/response"
	"github.com/rs/zerolog"
)

// QuestionStore is the persistence surface of the question bank.
// Implemented by repository.QuestionRepository.
type QuestionStore interface {
	GetBySlug(ctx context.Context, slug string) (*model.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	List(ctx context.Context, limit, offset int) ([]model.Question, int, error)
	Create(ctx context.Context, q *model.Question) error
	UpdateWithAnswers(ctx context.Context, q *model.Question, upserts []model.Answer, deleteIDs []uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AttemptReader serves student-facing question payloads, correctness withheld.
// Implemented by cache.QuestionCache.
type AttemptReader interface {
	GetForAttempt(ctx context.Context, slug string) (*model.QuestionForStudent, error)
}

// CacheRefresher rebuilds the question cache after bank writes.
// Implemented by cache.QuestionCache.
type CacheRefresher interface {
	Warm(ctx context.Context) error
}

// QuestionService owns the question bank: attempt-time reads plus the admin
// CRUD surface with diff-based answer reconciliation.
type QuestionService struct {
	store    QuestionStore
	attempts AttemptReader
	cache    CacheRefresher
	log      zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(store QuestionStore, attempts AttemptReader, cache CacheRefresher, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		store:    store,
		attempts: attempts,
		cache:    cache,
		log:      log.With().Str("component", "question_service").Logger(),
	}
}

// GetForAttempt returns one question as served during an exam, without
// correctness flags.
func (s *QuestionService) GetForAttempt(ctx context.Context, slug string) (*model.QuestionForStudent, error) {
	q, err := s.attempts.GetForAttempt(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("%w: get question: %w", ErrStore, err)
	}
	return q, nil
}

// Get returns one question with its answers, correctness included. Admin only.
func (s *QuestionService) Get(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("%w: get question: %w", ErrStore, err)
	}
	return q, nil
}

// List returns a page of the question bank. Admin only.
func (s *QuestionService) List(ctx context.Context, page, perPage int) ([]model.Question, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	questions, total, err := s.store.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: list questions: %w", ErrStore, err)
	}
	if questions == nil {
		questions = []model.Question{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return questions, pagination, nil
}

// Create adds a question to the bank and refreshes the cache.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest) (*model.Question, error) {
	if err := validateAnswerSet(req.Answers); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	q := &model.Question{
		Slug:        req.Slug,
		Title:       req.Title,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
		Explanation: req.Explanation,
		Active:      active,
		Answers:     make([]model.Answer, len(req.Answers)),
	}
	for i, in := range req.Answers {
		q.Answers[i] = model.Answer{Text: in.Text, IsCorrect: in.IsCorrect}
	}

	if err := s.store.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("%w: create question: %w", ErrStore, err)
	}

	s.refreshCache(ctx)
	s.log.Info().Str("question_id", q.ID.String()).Str("slug", q.Slug).Msg("Question created")
	return q, nil
}

// Update applies an edit to a question. When the payload carries answers, the
// stored set is reconciled against it: rows with a known ID are updated, rows
// without are inserted, and stored rows absent from the payload are deleted.
// Surviving answer IDs stay stable, so recorded exam answers keep meaning.
func (s *QuestionService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateQuestionRequest) (*model.Question, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		current.Title = req.Title
	}
	if req.Category != "" {
		current.Category = req.Category
	}
	if req.Difficulty != "" {
		current.Difficulty = req.Difficulty
	}
	if req.Explanation != nil {
		current.Explanation = *req.Explanation
	}
	if req.Active != nil {
		current.Active = *req.Active
	}

	var upserts []model.Answer
	var deleteIDs []uuid.UUID
	if req.Answers != nil {
		if err := validateAnswerSet(req.Answers); err != nil {
			return nil, err
		}
		upserts, deleteIDs, err = reconcileAnswers(current.Answers, req.Answers)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateWithAnswers(ctx, current, upserts, deleteIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("%w: update question: %w", ErrStore, err)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.refreshCache(ctx)
	s.log.Info().Str("question_id", id.String()).Msg("Question updated")
	return updated, nil
}

// Delete removes a question from the bank and refreshes the cache. Slot rows
// referencing it cascade away; stored session scores are untouched.
func (s *QuestionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("%w: delete question: %w", ErrStore, err)
	}

	s.refreshCache(ctx)
	s.log.Info().Str("question_id", id.String()).Msg("Question deleted")
	return nil
}

// RefreshCache rebuilds the Redis question cache from PostgreSQL.
func (s *QuestionService) RefreshCache(ctx context.Context) error {
	return s.cache.Warm(ctx)
}

// refreshCache is the best-effort variant used after bank writes. The write
// already committed; a stale cache self-heals on the next read.
func (s *QuestionService) refreshCache(ctx context.Context) {
	if err := s.cache.Warm(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Cache refresh after bank write failed")
	}
}

// validateAnswerSet enforces the bank invariant: at least two options with
// exactly one flagged correct.
func validateAnswerSet(answers []model.AnswerInput) error {
	if len(answers) < 2 {
		return fmt.Errorf("%w: a question needs at least two answers", ErrValidation)
	}
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%w: exactly one answer must be marked correct, got %d", ErrValidation, correct)
	}
	return nil
}

// reconcileAnswers diffs the stored answer set against the incoming payload.
func reconcileAnswers(stored []model.Answer, incoming []model.AnswerInput) (upserts []model.Answer, deleteIDs []uuid.UUID, err error) {
	known := make(map[uuid.UUID]bool, len(stored))
	for _, a := range stored {
		known[a.ID] = true
	}

	kept := make(map[uuid.UUID]bool, len(incoming))
	for _, in := range incoming {
		a := model.Answer{Text: in.Text, IsCorrect: in.IsCorrect}
		if in.ID != nil {
			if !known[*in.ID] {
				return nil, nil, fmt.Errorf("%w: answer %s does not belong to this question", ErrValidation, *in.ID)
			}
			a.ID = *in.ID
			kept[*in.ID] = true
		}
		upserts = append(upserts, a)
	}

	for _, a := range stored {
		if !kept[a.ID] {
			deleteIDs = append(deleteIDs, a.ID)
		}
	}
	return upserts, deleteIDs, nil
}
