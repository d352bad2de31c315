// Package handler translates HTTP requests into service calls and service
// errors into the response envelope.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/response"
	"github.com/numerix/numerix-backend/internal/selector"
	"github.com/numerix/numerix-backend/internal/service"
	"github.com/numerix/numerix-backend/internal/validator"
)

// ExamHandler serves the student-facing exam endpoints.
type ExamHandler struct {
	sessions     *service.ExamSessionService
	questions    *service.QuestionService
	certificates *service.CertificateService
	log          zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	sessions *service.ExamSessionService,
	questions *service.QuestionService,
	certificates *service.CertificateService,
	log zerolog.Logger,
) *ExamHandler {
	return &ExamHandler{
		sessions:     sessions,
		questions:    questions,
		certificates: certificates,
		log:          log.With().Str("component", "exam_handler").Logger(),
	}
}

// InitializeSession handles POST /api/v1/exam/sessions.
func (h *ExamHandler) InitializeSession(c *gin.Context) {
	var req model.InitializeExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessions.Initialize(c.Request.Context(), req.StudentName, req.StudentEmail)
	if err != nil {
		h.fail(c, err)
		return
	}

	slugs := make([]string, len(session.Questions))
	for i, q := range session.Questions {
		slugs[i] = q.Slug
	}

	response.Success(c, http.StatusCreated, model.InitializeExamResponse{
		SessionID:       session.ID,
		QuestionSlugs:   slugs,
		TotalQuestions:  session.TotalQuestions,
		ExpiresAt:       session.ExpiresAt,
		DurationSeconds: int(session.ExpiresAt.Sub(session.StartedAt) / time.Second),
	})
}

// GetQuestion handles GET /api/v1/exam/questions/:slug. The payload never
// carries correctness flags.
func (h *ExamHandler) GetQuestion(c *gin.Context) {
	question, err := h.questions.GetForAttempt(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, question)
}

// SubmitAnswer handles POST /api/v1/exam/sessions/:id/answers.
func (h *ExamHandler) SubmitAnswer(c *gin.Context) {
	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessions.RecordAnswer(c.Request.Context(), sessionID, req.QuestionID, req.AnswerID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// CompleteSession handles POST /api/v1/exam/sessions/:id/complete.
func (h *ExamHandler) CompleteSession(c *gin.Context) {
	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	var req model.CompleteExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessions.Complete(c.Request.Context(), sessionID, req.TimeExpired)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetResults handles GET /api/v1/exam/sessions/:id/results.
func (h *ExamHandler) GetResults(c *gin.Context) {
	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.sessions.Results(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GetCertificate handles GET /api/v1/exam/sessions/:id/certificate and streams
// the PDF for passing sessions.
func (h *ExamHandler) GetCertificate(c *gin.Context) {
	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	pdf, err := h.certificates.Render(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	session, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+service.CertificateFilename(session)+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// fail maps a service error to its envelope response.
func (h *ExamHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	case errors.Is(err, selector.ErrInsufficientPool), errors.Is(err, selector.ErrInvalidCount):
		response.Fail(c, http.StatusConflict, response.ErrInsufficientPool)
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrQuestionNotInSession):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrQuestionNotInSession)
	case errors.Is(err, service.ErrSessionClosed):
		response.Fail(c, http.StatusConflict, response.ErrSessionClosed)
	case errors.Is(err, service.ErrSessionNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotCompleted)
	case errors.Is(err, service.ErrCertificateUnavailable):
		response.Fail(c, http.StatusConflict, response.ErrCertificateUnavailable)
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled service error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseID reads the :id path parameter as a UUID, responding on failure.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
