package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/signalflags/signalflags-api/internal/flags"
	"github.com/signalflags/signalflags-api/internal/middleware"
	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/internal/service"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
	"github.com/signalflags/signalflags-api/pkg/response"
)

// QuizHandler exposes the quiz session lifecycle over HTTP.
type QuizHandler struct {
	quiz    *service.QuizService
	metrics *service.MetricsService
}

// NewQuizHandler creates a new handler.
func NewQuizHandler(quiz *service.QuizService, metrics *service.MetricsService) *QuizHandler {
	return &QuizHandler{quiz: quiz, metrics: metrics}
}

// StartSessionRequest is the payload opening a quiz session.
type StartSessionRequest struct {
	Mode          models.QuizMode `json:"mode" binding:"required"`
	Category      string          `json:"category"`
	QuestionCount int             `json:"question_count"`
}

// AnswerRequest is the payload answering the current question.
type AnswerRequest struct {
	SelectedOptionID string  `json:"selected_option_id" binding:"required"`
	TimeSpentSeconds float64 `json:"time_spent_seconds"`
}

// StartSession godoc
// @Summary Start a quiz session
// @Description Open a practice or competitive session with a freshly drawn question set
// @Tags Quiz
// @Accept json
// @Produce json
// @Param payload body handler.StartSessionRequest true "Session options"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /quiz/sessions [post]
func (h *QuizHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	userID := ""
	if user := middleware.GetCurrentUser(c); user != nil {
		userID = user.UserID
	}

	session, err := h.quiz.StartSession(req.Mode, userID, req.Category, req.QuestionCount)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSessionStarted(string(session.Mode))

	response.Created(c, session)
}

// GetSession godoc
// @Summary Fetch an in-flight session
// @Tags Quiz
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quiz/sessions/{id} [get]
func (h *QuizHandler) GetSession(c *gin.Context) {
	session, err := h.quiz.GetSession(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.ownsSession(c, session) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another user"))
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// SubmitAnswer godoc
// @Summary Answer the current question
// @Tags Quiz
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param payload body handler.AnswerRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /quiz/sessions/{id}/answers [post]
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid answer payload"))
		return
	}

	answer, err := h.quiz.SubmitAnswer(c.Param("id"), req.SelectedOptionID, req.TimeSpentSeconds)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, answer, nil)
}

// CompleteSession godoc
// @Summary Complete a session
// @Description Finalize the session into an immutable summary
// @Tags Quiz
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /quiz/sessions/{id}/complete [post]
func (h *QuizHandler) CompleteSession(c *gin.Context) {
	summary, err := h.quiz.CompleteSession(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSessionCompleted(string(summary.Mode))

	response.JSON(c, http.StatusOK, summary, nil)
}

// ListFlags godoc
// @Summary List the flag dataset
// @Description Static signal-flag reference data, optionally filtered by category
// @Tags Quiz
// @Produce json
// @Param category query string false "alphabet or numeral"
// @Success 200 {object} response.Envelope
// @Router /quiz/flags [get]
func (h *QuizHandler) ListFlags(c *gin.Context) {
	response.JSON(c, http.StatusOK, flags.ByCategory(c.Query("category")), nil)
}

func (h *QuizHandler) ownsSession(c *gin.Context, session *models.QuizSession) bool {
	if session.UserID == "" {
		return true
	}
	user := middleware.GetCurrentUser(c)
	return user != nil && user.UserID == session.UserID
}
