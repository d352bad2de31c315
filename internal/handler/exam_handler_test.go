package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/scorer"
	"github.com/numerix/numerix-backend/internal/service"
	"github.com/numerix/numerix-backend/internal/validator"
)

// ───────────────────────────────────────────────────────────────────────────
// In-memory backing fakes
// ───────────────────────────────────────────────────────────────────────────

type memStore struct {
	sessions map[uuid.UUID]*model.ExamSession
}

func (m *memStore) CreateWithSlots(_ context.Context, s *model.ExamSession, selection []model.QuestionRef) error {
	s.ID = uuid.New()
	s.TotalQuestions = len(selection)
	s.Questions = make([]model.SessionQuestion, len(selection))
	for i, ref := range selection {
		s.Questions[i] = model.SessionQuestion{QuestionID: ref.ID, Slug: ref.Slug, Position: i}
	}
	cp := *s
	cp.Questions = append([]model.SessionQuestion(nil), s.Questions...)
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return m.GetWithSlots(ctx, id)
}

func (m *memStore) GetWithSlots(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	cp.Questions = append([]model.SessionQuestion(nil), s.Questions...)
	return &cp, nil
}

func (m *memStore) RecordAnswer(_ context.Context, sessionID, questionID, answerID uuid.UUID, at time.Time) (bool, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}
	for i := range s.Questions {
		if s.Questions[i].QuestionID == questionID {
			a, t := answerID, at
			s.Questions[i].UserAnswer = &a
			s.Questions[i].AnsweredAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkCompleted(_ context.Context, id uuid.UUID, reason model.CompletionReason, score float64, passed bool, at time.Time) (bool, error) {
	s, ok := m.sessions[id]
	if !ok || s.CompletedAt != nil {
		return false, nil
	}
	t := at
	s.CompletedAt = &t
	s.TimeExpired = reason == model.CompletionReasonTimeExpired
	s.Score = &score
	s.Passed = &passed
	return true, nil
}

func (m *memStore) ListSummaries(context.Context, int, int) ([]model.SessionSummary, int, error) {
	return nil, 0, nil
}

func (m *memStore) ListExpired(context.Context, time.Time, int) ([]uuid.UUID, error) {
	return nil, nil
}

type memBank struct {
	questions []model.Question
}

func (m *memBank) ListActiveRefs(context.Context) ([]model.QuestionRef, error) {
	refs := make([]model.QuestionRef, len(m.questions))
	for i, q := range m.questions {
		refs[i] = model.QuestionRef{ID: q.ID, Slug: q.Slug}
	}
	return refs, nil
}

func (m *memBank) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Question
	for _, q := range m.questions {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memBank) AnswerKey(context.Context) (scorer.AnswerKey, error) {
	key := make(scorer.AnswerKey)
	for _, q := range m.questions {
		for _, a := range q.Answers {
			if a.IsCorrect {
				key[q.ID] = a.ID
			}
		}
	}
	return key, nil
}

func (m *memBank) GetForAttempt(_ context.Context, slug string) (*model.QuestionForStudent, error) {
	for i := range m.questions {
		if m.questions[i].Slug == slug {
			return m.questions[i].ForStudent(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memBank) GetBySlug(context.Context, string) (*model.Question, error) {
	return nil, pgx.ErrNoRows
}
func (m *memBank) GetByID(context.Context, uuid.UUID) (*model.Question, error) {
	return nil, pgx.ErrNoRows
}
func (m *memBank) List(context.Context, int, int) ([]model.Question, int, error) {
	return m.questions, len(m.questions), nil
}
func (m *memBank) Create(context.Context, *model.Question) error { return nil }
func (m *memBank) UpdateWithAnswers(context.Context, *model.Question, []model.Answer, []uuid.UUID) error {
	return nil
}
func (m *memBank) Delete(context.Context, uuid.UUID) error { return nil }
func (m *memBank) Warm(context.Context) error              { return nil }

type noopDeadlines struct{}

func (noopDeadlines) Track(context.Context, uuid.UUID, time.Time) {}
func (noopDeadlines) Forget(context.Context, uuid.UUID)           {}

type fixedSettings struct{}

func (fixedSettings) ExamSettings(context.Context) (model.ExamSettings, error) {
	return model.ExamSettings{TimerMinutes: 30, PassThreshold: 0.5, QuestionCount: 5}, nil
}

// ───────────────────────────────────────────────────────────────────────────
// Harness
// ───────────────────────────────────────────────────────────────────────────

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func setupExamRouter(t *testing.T) (*gin.Engine, *memBank) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validator.Setup()

	bank := &memBank{}
	for i := 0; i < 8; i++ {
		correct := model.Answer{ID: uuid.New(), Text: "yes", IsCorrect: true}
		wrong := model.Answer{ID: uuid.New(), Text: "no"}
		bank.questions = append(bank.questions, model.Question{
			ID:      uuid.New(),
			Slug:    fmt.Sprintf("question-%d", i),
			Title:   fmt.Sprintf("Question %d", i),
			Active:  true,
			Answers: []model.Answer{correct, wrong},
		})
	}

	store := &memStore{sessions: make(map[uuid.UUID]*model.ExamSession)}
	log := zerolog.Nop()

	sessionSvc := service.NewExamSessionService(store, bank, bank, noopDeadlines{}, fixedSettings{}, log)
	questionSvc := service.NewQuestionService(bank, bank, bank, log)
	certSvc := service.NewCertificateService(store, "testdata/font.ttf", log)

	h := NewExamHandler(sessionSvc, questionSvc, certSvc, log)

	r := gin.New()
	api := r.Group("/api/v1/exam")
	api.POST("/sessions", h.InitializeSession)
	api.GET("/questions/:slug", h.GetQuestion)
	api.POST("/sessions/:id/answers", h.SubmitAnswer)
	api.POST("/sessions/:id/complete", h.CompleteSession)
	api.GET("/sessions/:id/results", h.GetResults)
	return r, bank
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

// ───────────────────────────────────────────────────────────────────────────
// Tests
// ───────────────────────────────────────────────────────────────────────────

func TestExamFlow_InitializeAnswerComplete(t *testing.T) {
	r, bank := setupExamRouter(t)

	// Start a session.
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/exam/sessions", gin.H{
		"student_name":  "Ada Lovelace",
		"student_email": "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var init model.InitializeExamResponse
	require.NoError(t, json.Unmarshal(env.Data, &init))
	require.Len(t, init.QuestionSlugs, 5)
	assert.Equal(t, 5, init.TotalQuestions)
	assert.Equal(t, 30*60, init.DurationSeconds)

	// Fetch each question and answer it correctly.
	for i, slug := range init.QuestionSlugs {
		w, env = doJSON(t, r, http.MethodGet, "/api/v1/exam/questions/"+slug, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var q model.QuestionForStudent
		require.NoError(t, json.Unmarshal(env.Data, &q))
		require.Len(t, q.Options, 2)

		var correct uuid.UUID
		for _, stored := range bank.questions {
			if stored.Slug != slug {
				continue
			}
			for _, a := range stored.Answers {
				if a.IsCorrect {
					correct = a.ID
				}
			}
		}

		w, env = doJSON(t, r, http.MethodPost,
			fmt.Sprintf("/api/v1/exam/sessions/%s/answers", init.SessionID),
			model.SubmitAnswerRequest{QuestionID: q.ID, AnswerID: correct})
		require.Equal(t, http.StatusOK, w.Code)

		var sub model.SubmitAnswerResponse
		require.NoError(t, json.Unmarshal(env.Data, &sub))
		assert.Equal(t, i == len(init.QuestionSlugs)-1, sub.ExamCompleted)
	}

	// Results: everything correct, pass.
	w, env = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/v1/exam/sessions/%s/results", init.SessionID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result model.ExamResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 5, result.CorrectAnswers)
	assert.Equal(t, 1.0, result.Score)
	assert.True(t, result.Passed)

	// The session is closed now: further answers are rejected.
	w, env = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/exam/sessions/%s/answers", init.SessionID),
		model.SubmitAnswerRequest{QuestionID: bank.questions[0].ID, AnswerID: uuid.New()})
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_CLOSED", env.Error.Code)
}

func TestExamFlow_ValidationAndNotFound(t *testing.T) {
	r, _ := setupExamRouter(t)

	// Missing email fails validation.
	w, env := doJSON(t, r, http.MethodPost, "/api/v1/exam/sessions", gin.H{
		"student_name": "Ada",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	// Unknown question slug.
	w, env = doJSON(t, r, http.MethodGet, "/api/v1/exam/questions/no-such-slug", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	// Malformed session ID.
	w, env = doJSON(t, r, http.MethodGet, "/api/v1/exam/sessions/not-a-uuid/results", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_ID", env.Error.Code)

	// Unknown session ID.
	w, env = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/v1/exam/sessions/%s/results", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestExamFlow_ResultsConflictWhileInProgress(t *testing.T) {
	r, _ := setupExamRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/exam/sessions", gin.H{
		"student_name":  "Ada",
		"student_email": "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var init model.InitializeExamResponse
	require.NoError(t, json.Unmarshal(env.Data, &init))

	w, env = doJSON(t, r, http.MethodGet,
		fmt.Sprintf("/api/v1/exam/sessions/%s/results", init.SessionID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_NOT_COMPLETED", env.Error.Code)
}

func TestExamFlow_DoubleCompleteIsIdempotent(t *testing.T) {
	r, _ := setupExamRouter(t)

	w, env := doJSON(t, r, http.MethodPost, "/api/v1/exam/sessions", gin.H{
		"student_name":  "Ada",
		"student_email": "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var init model.InitializeExamResponse
	require.NoError(t, json.Unmarshal(env.Data, &init))

	w, env = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/exam/sessions/%s/complete", init.SessionID),
		model.CompleteExamRequest{})
	require.Equal(t, http.StatusOK, w.Code)

	var first model.CompleteExamResponse
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.False(t, first.AlreadyCompleted)

	w, env = doJSON(t, r, http.MethodPost,
		fmt.Sprintf("/api/v1/exam/sessions/%s/complete", init.SessionID),
		model.CompleteExamRequest{})
	require.Equal(t, http.StatusOK, w.Code)

	var second model.CompleteExamResponse
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.True(t, second.AlreadyCompleted)
}
