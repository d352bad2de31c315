package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/response"
	"github.com/numerix/numerix-backend/internal/scorer"
	"github.com/numerix/numerix-backend/internal/selector"
	"github.com/rs/zerolog"
)

// noAnswerText is the review-list sentinel for an unanswered slot.
const noAnswerText = "No answer"

// ExamSessionService owns the session lifecycle: assembling the question
// sequence, recording answers, the guarded completion transition, and the
// derived result.
type ExamSessionService struct {
	sessions   SessionStore
	questions  QuestionSource
	answerKeys AnswerKeySource
	deadlines  DeadlineTracker
	settings   SettingsProvider
	log        zerolog.Logger

	// entropy and now are swapped for seeded/frozen versions in tests.
	entropy func() *rand.Rand
	now     func() time.Time
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	sessions SessionStore,
	questions QuestionSource,
	answerKeys AnswerKeySource,
	deadlines DeadlineTracker,
	settings SettingsProvider,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		sessions:   sessions,
		questions:  questions,
		answerKeys: answerKeys,
		deadlines:  deadlines,
		settings:   settings,
		log:        log.With().Str("component", "exam_session_service").Logger(),
		entropy: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		now: time.Now,
	}
}

// Initialize assembles a randomized question sequence and creates the session
// atomically - either the full session with all slots exists, or nothing.
func (s *ExamSessionService) Initialize(ctx context.Context, studentName, studentEmail string) (*model.ExamSession, error) {
	studentName = strings.TrimSpace(studentName)
	studentEmail = strings.TrimSpace(studentEmail)
	if studentName == "" || studentEmail == "" {
		return nil, fmt.Errorf("%w: student name and email are required", ErrValidation)
	}

	settings, err := s.settings.ExamSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve exam settings: %w", err)
	}

	pool, err := s.questions.ListActiveRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list active questions: %w", ErrStore, err)
	}

	selection, err := selector.Select(pool, settings.QuestionCount, s.entropy())
	if err != nil {
		return nil, err
	}

	now := s.now()
	// The service clock owns both timestamps; started_at and expires_at are
	// always exactly TimerMinutes apart.
	session := &model.ExamSession{
		StudentName:  studentName,
		StudentEmail: studentEmail,
		StartedAt:    now,
		ExpiresAt:    now.Add(time.Duration(settings.TimerMinutes) * time.Minute),
	}

	if err := s.sessions.CreateWithSlots(ctx, session, selection); err != nil {
		return nil, fmt.Errorf("%w: create session: %w", ErrStore, err)
	}

	s.deadlines.Track(ctx, session.ID, session.ExpiresAt)

	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("questions", len(selection)).
		Time("expires_at", session.ExpiresAt).
		Msg("Exam session initialized")

	return session, nil
}

// GetSession retrieves a session with its ordered slots.
func (s *ExamSessionService) GetSession(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.GetWithSlots(ctx, id)
	if err != nil {
		return nil, mapSessionErr(err)
	}
	return session, nil
}

// RecordAnswer writes the chosen option into the question's slot. Overwriting
// an earlier answer is deliberate policy (back navigation); replaying the
// identical pair yields the identical response. Answering the slot at the
// last position triggers completion with reason AllAnswered.
func (s *ExamSessionService) RecordAnswer(ctx context.Context, sessionID, questionID, answerID uuid.UUID) (*model.SubmitAnswerResponse, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Completed() {
		return nil, ErrSessionClosed
	}

	// Server-trusted expiry: the client clock never decides. A submission
	// past the deadline closes the session with whatever was recorded.
	if s.now().After(session.ExpiresAt) {
		if _, _, err := s.finish(ctx, sessionID, model.CompletionReasonTimeExpired); err != nil {
			s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Expiry completion failed")
		}
		return nil, ErrSessionClosed
	}

	var slot *model.SessionQuestion
	for i := range session.Questions {
		if session.Questions[i].QuestionID == questionID {
			slot = &session.Questions[i]
			break
		}
	}
	if slot == nil {
		return nil, ErrQuestionNotInSession
	}

	recorded, err := s.sessions.RecordAnswer(ctx, sessionID, questionID, answerID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: record answer: %w", ErrStore, err)
	}
	if !recorded {
		return nil, ErrQuestionNotInSession
	}

	if slot.Position == len(session.Questions)-1 {
		if _, _, err := s.finish(ctx, sessionID, model.CompletionReasonAllAnswered); err != nil {
			return nil, err
		}
		return &model.SubmitAnswerResponse{ExamCompleted: true}, nil
	}

	next := session.Questions[slot.Position+1].Slug
	return &model.SubmitAnswerResponse{ExamCompleted: false, NextQuestionSlug: &next}, nil
}

// Complete handles an explicit completion signal from the client. Idempotent:
// a duplicate signal (client retry racing the sweeper or the last answer)
// observes the completed session and reports AlreadyCompleted without
// touching stored results.
func (s *ExamSessionService) Complete(ctx context.Context, sessionID uuid.UUID, timeExpired bool) (*model.CompleteExamResponse, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Completed() {
		return &model.CompleteExamResponse{AlreadyCompleted: true}, nil
	}

	reason := model.CompletionReasonAllAnswered
	// The flag is advisory; the session's own deadline is authoritative.
	if timeExpired || s.now().After(session.ExpiresAt) {
		reason = model.CompletionReasonTimeExpired
	}

	_, applied, err := s.finish(ctx, sessionID, reason)
	if err != nil {
		return nil, err
	}
	return &model.CompleteExamResponse{AlreadyCompleted: !applied}, nil
}

// ForceExpire completes an in-progress session whose deadline has passed.
// Called by the deadline sweeper; a no-op for already-completed sessions.
func (s *ExamSessionService) ForceExpire(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Gone from the store; nothing to expire.
			s.deadlines.Forget(ctx, sessionID)
			return nil
		}
		return err
	}

	if session.Completed() {
		s.deadlines.Forget(ctx, sessionID)
		return nil
	}
	if s.now().Before(session.ExpiresAt) {
		return nil
	}

	_, _, err = s.finish(ctx, sessionID, model.CompletionReasonTimeExpired)
	return err
}

// ExpiredSessions lists in-progress sessions past their deadline (the
// sweeper's PostgreSQL fallback scan).
func (s *ExamSessionService) ExpiredSessions(ctx context.Context, limit int) ([]uuid.UUID, error) {
	ids, err := s.sessions.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list expired sessions: %w", ErrStore, err)
	}
	return ids, nil
}

// Results returns the derived outcome of a completed session. An in-progress
// session past its deadline is completed first (TimeExpired); one still
// inside its deadline is a conflict - scoring runs only at the completion
// transition.
func (s *ExamSessionService) Results(ctx context.Context, sessionID uuid.UUID) (*model.ExamResult, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.Completed() {
		if !s.now().After(session.ExpiresAt) {
			return nil, ErrSessionNotCompleted
		}
		result, _, err := s.finish(ctx, sessionID, model.CompletionReasonTimeExpired)
		return result, err
	}

	return s.buildResult(ctx, session)
}

// ListSummaries returns a page of sessions for the admin report.
func (s *ExamSessionService) ListSummaries(ctx context.Context, page, perPage int) ([]model.SessionSummary, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	summaries, total, err := s.sessions.ListSummaries(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: list sessions: %w", ErrStore, err)
	}
	if summaries == nil {
		summaries = []model.SessionSummary{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return summaries, pagination, nil
}

// finish performs the guarded completion transition and scores the session
// exactly once. If another trigger won the race, the stored result is read
// back instead - the second trigger is a no-op by design.
func (s *ExamSessionService) finish(ctx context.Context, sessionID uuid.UUID, reason model.CompletionReason) (*model.ExamResult, bool, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	if session.Completed() {
		result, err := s.buildResult(ctx, session)
		return result, false, err
	}

	key, err := s.answerKeys.AnswerKey(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: load answer key: %w", ErrStore, err)
	}

	settings, err := s.settings.ExamSettings(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("resolve exam settings: %w", err)
	}

	slots := make([]scorer.Slot, len(session.Questions))
	for i, q := range session.Questions {
		slots[i] = scorer.Slot{QuestionID: q.QuestionID, Submitted: q.UserAnswer}
	}
	outcome := scorer.Grade(slots, key, settings.PassThreshold)

	completedAt := s.now()
	applied, err := s.sessions.MarkCompleted(ctx, sessionID, reason, outcome.Score, outcome.Passed, completedAt)
	if err != nil {
		return nil, false, fmt.Errorf("%w: mark completed: %w", ErrStore, err)
	}

	if !applied {
		// Lost the race against a concurrent trigger - the first write won.
		stored, err := s.GetSession(ctx, sessionID)
		if err != nil {
			return nil, false, err
		}
		result, err := s.buildResult(ctx, stored)
		return result, false, err
	}

	s.deadlines.Forget(ctx, sessionID)

	session.CompletedAt = &completedAt
	session.TimeExpired = reason == model.CompletionReasonTimeExpired
	session.Score = &outcome.Score
	session.Passed = &outcome.Passed

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("reason", string(reason)).
		Float64("score", outcome.Score).
		Bool("passed", outcome.Passed).
		Msg("Exam session completed")

	result, err := s.buildResult(ctx, session)
	return result, true, err
}

// buildResult derives the ExamResult of a completed session. Score and
// verdict come from the stored fields - never recomputed - while the review
// list is rebuilt deterministically from the slots and question data.
func (s *ExamSessionService) buildResult(ctx context.Context, session *model.ExamSession) (*model.ExamResult, error) {
	if !session.Completed() || session.Score == nil || session.Passed == nil {
		return nil, fmt.Errorf("build result: session %s is not completed", session.ID)
	}

	ids := make([]uuid.UUID, len(session.Questions))
	for i, q := range session.Questions {
		ids[i] = q.QuestionID
	}

	questions, err := s.questions.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: load session questions: %w", ErrStore, err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	reason := model.CompletionReasonAllAnswered
	if session.TimeExpired {
		reason = model.CompletionReasonTimeExpired
	}

	result := &model.ExamResult{
		TotalQuestions:  session.TotalQuestions,
		Score:           *session.Score,
		Passed:          *session.Passed,
		Reason:          reason,
		CompletedAt:     *session.CompletedAt,
		FailedQuestions: []model.MissedQuestion{},
	}

	for _, slot := range session.Questions {
		question, ok := byID[slot.QuestionID]
		if !ok {
			return nil, fmt.Errorf("build result: question %s missing", slot.QuestionID)
		}

		var correct, submitted *model.Answer
		for i := range question.Answers {
			a := &question.Answers[i]
			if a.IsCorrect {
				correct = a
			}
			if slot.UserAnswer != nil && a.ID == *slot.UserAnswer {
				submitted = a
			}
		}

		if correct != nil && submitted != nil && submitted.ID == correct.ID {
			result.CorrectAnswers++
			continue
		}

		missed := model.MissedQuestion{
			Title:         question.Title,
			UserAnswer:    noAnswerText,
			CorrectAnswer: "Unknown",
			Explanation:   question.Explanation,
		}
		if submitted != nil {
			missed.UserAnswer = submitted.Text
		}
		if correct != nil {
			missed.CorrectAnswer = correct.Text
		}
		result.FailedQuestions = append(result.FailedQuestions, missed)
	}

	return result, nil
}
