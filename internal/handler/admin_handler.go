package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/numerix/numerix-backend/internal/model"
	"github.com/numerix/numerix-backend/internal/response"
	"github.com/numerix/numerix-backend/internal/service"
	"github.com/numerix/numerix-backend/internal/validator"
)

// AdminHandler serves the question bank CRUD, the session report, exam
// settings, and cache maintenance.
type AdminHandler struct {
	questions *service.QuestionService
	sessions  *service.ExamSessionService
	settings  *service.SettingService
	log       zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	questions *service.QuestionService,
	sessions *service.ExamSessionService,
	settings *service.SettingService,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		questions: questions,
		sessions:  sessions,
		settings:  settings,
		log:       log.With().Str("component", "admin_handler").Logger(),
	}
}

// ListQuestions handles GET /api/v1/admin/questions.
func (h *AdminHandler) ListQuestions(c *gin.Context) {
	page, perPage := parsePage(c)

	questions, pagination, err := h.questions.List(c.Request.Context(), page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, questions, pagination)
}

// GetQuestion handles GET /api/v1/admin/questions/:id. The payload includes
// correctness flags - this surface is privileged.
func (h *AdminHandler) GetQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	question, err := h.questions.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, question)
}

// CreateQuestion handles POST /api/v1/admin/questions.
func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questions.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, question)
}

// UpdateQuestion handles PUT /api/v1/admin/questions/:id.
func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questions.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, question)
}

// DeleteQuestion handles DELETE /api/v1/admin/questions/:id.
func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.questions.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// ListSessions handles GET /api/v1/admin/sessions - the exam report.
func (h *AdminHandler) ListSessions(c *gin.Context) {
	page, perPage := parsePage(c)

	summaries, pagination, err := h.sessions.ListSummaries(c.Request.Context(), page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, summaries, pagination)
}

// GetSettings handles GET /api/v1/admin/settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.ExamSettings(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/v1/admin/settings.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req model.UpdateSettingsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, settings)
}

// RefreshCache handles POST /api/v1/admin/cache/refresh.
func (h *AdminHandler) RefreshCache(c *gin.Context) {
	if err := h.questions.RefreshCache(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("Manual cache refresh failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"refreshed": true})
}

func (h *AdminHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	case errors.Is(err, service.ErrQuestionNotFound), errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled service error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parsePage reads pagination query parameters with defaults.
func parsePage(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	return page, perPage
}
