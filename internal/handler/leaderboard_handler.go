package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/signalflags/signalflags-api/internal/middleware"
	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/internal/service"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
	"github.com/signalflags/signalflags-api/pkg/response"
)

// LeaderboardHandler exposes score submission and the paged read path.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
	exports     *service.ExportService
	metrics     *service.MetricsService
}

// NewLeaderboardHandler creates a new handler.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService, exports *service.ExportService, metrics *service.MetricsService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, exports: exports, metrics: metrics}
}

// SubmitRequest carries a finalized session summary for submission.
type SubmitRequest struct {
	SessionID        string  `json:"session_id" binding:"required"`
	Score            int     `json:"score"`
	TotalQuestions   int     `json:"total_questions" binding:"required"`
	Accuracy         float64 `json:"accuracy"`
	TotalTimeSeconds float64 `json:"total_time_seconds"`
	FinalRating      float64 `json:"final_rating"`
	Category         string  `json:"category"`
}

func (r SubmitRequest) summary(mode models.QuizMode, userID string) models.QuizSummary {
	return models.QuizSummary{
		SessionID:        r.SessionID,
		Mode:             mode,
		UserID:           userID,
		Score:            r.Score,
		TotalQuestions:   r.TotalQuestions,
		Accuracy:         r.Accuracy,
		TotalTimeSeconds: r.TotalTimeSeconds,
		FinalRating:      r.FinalRating,
	}
}

// SubmitScore godoc
// @Summary Submit a competitive score
// @Description Append a finalized competitive result to the leaderboard
// @Tags Leaderboard
// @Accept json
// @Produce json
// @Param payload body handler.SubmitRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/scores [post]
func (h *LeaderboardHandler) SubmitScore(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	user := middleware.GetCurrentUser(c)
	result := h.leaderboard.SubmitScore(c.Request.Context(), user, req.summary(models.ModeCompetitive, userIDOf(user)))
	h.metrics.RecordSubmission("leaderboard", result.Success)

	if !result.Success {
		response.JSON(c, http.StatusBadRequest, result, nil)
		return
	}
	response.Created(c, result)
}

// SubmitPractice godoc
// @Summary Record a practice result
// @Description Append a finalized practice result to the caller's private history
// @Tags Leaderboard
// @Accept json
// @Produce json
// @Param payload body handler.SubmitRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/practice [post]
func (h *LeaderboardHandler) SubmitPractice(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}

	user := middleware.GetCurrentUser(c)
	result := h.leaderboard.SubmitPractice(c.Request.Context(), user, req.summary(models.ModePractice, userIDOf(user)), req.Category)
	h.metrics.RecordSubmission("practice", result.Success)

	if !result.Success {
		response.JSON(c, http.StatusBadRequest, result, nil)
		return
	}
	response.Created(c, result)
}

// GetLeaderboard godoc
// @Summary Read the leaderboard
// @Description First page when no cursor is given; otherwise resumes after the cursor
// @Tags Leaderboard
// @Produce json
// @Param cursor query string false "Continuation cursor"
// @Param batch_size query int false "Page size"
// @Param starting_rank query int false "Rank of the first entry on this page"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	batchSize := intQuery(c, "batch_size")

	var (
		page *models.Page[models.LeaderboardEntry]
		err  error
	)
	if cursorToken := c.Query("cursor"); cursorToken != "" {
		page, err = h.leaderboard.GetLeaderboardPaginated(c.Request.Context(), cursorToken, batchSize, intQuery(c, "starting_rank"))
	} else {
		page, err = h.leaderboard.GetLeaderboardInitial(c.Request.Context(), batchSize)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, page.Entries, &response.PageInfo{
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		BatchSize:  len(page.Entries),
	})
}

// GetHistory godoc
// @Summary Read the caller's practice history
// @Tags Leaderboard
// @Produce json
// @Param sort_by query string false "completed_at, accuracy or score"
// @Param cursor query string false "Continuation cursor"
// @Param batch_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/history [get]
func (h *LeaderboardHandler) GetHistory(c *gin.Context) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sortBy := models.HistorySort(c.Query("sort_by"))
	batchSize := intQuery(c, "batch_size")

	var (
		page *models.Page[models.PracticeResult]
		err  error
	)
	if cursorToken := c.Query("cursor"); cursorToken != "" {
		page, err = h.leaderboard.GetPracticeHistoryPaginated(c.Request.Context(), user.UserID, sortBy, cursorToken, batchSize)
	} else {
		page, err = h.leaderboard.GetPracticeHistoryInitial(c.Request.Context(), user.UserID, sortBy, batchSize)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, page.Entries, &response.PageInfo{
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		BatchSize:  len(page.Entries),
	})
}

// ExportStandings godoc
// @Summary Export the standings
// @Description Download the current leaderboard as CSV or PDF
// @Tags Leaderboard
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /leaderboard/export [get]
func (h *LeaderboardHandler) ExportStandings(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))

	data, filename, contentType, err := h.exports.ExportStandings(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func intQuery(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

func userIDOf(user *models.User) string {
	if user == nil {
		return ""
	}
	return user.UserID
}
