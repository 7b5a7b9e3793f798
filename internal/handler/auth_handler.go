package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/signalflags/signalflags-api/internal/middleware"
	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/internal/service"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
	"github.com/signalflags/signalflags-api/pkg/response"
)

// AuthHandler exposes the per-install session lifecycle over HTTP.
type AuthHandler struct {
	sessions *service.SessionManager
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(sessions *service.SessionManager) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// orchestrator resolves the install's orchestrator, running the startup
// restore on first contact so every request observes an initialized state.
func (h *AuthHandler) orchestrator(c *gin.Context) *service.AuthOrchestrator {
	orch := h.sessions.ForInstall(middleware.GetInstallID(c))
	if !orch.IsInitialized() {
		orch.InitializeAuth(c.Request.Context())
	}
	return orch
}

// Register godoc
// @Summary Register a new user
// @Description Create a user bound to this install's device identifier
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Install-ID header string true "Install identifier"
// @Param payload body models.UserRegistrationData true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.UserRegistrationData
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	orch := h.orchestrator(c)
	result := orch.RegisterUser(c.Request.Context(), req)
	if !result.Success {
		response.JSON(c, http.StatusBadRequest, result, nil)
		return
	}

	token, err := h.sessions.IssueToken(result.User, middleware.GetInstallID(c), result.User.DeviceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	result.Token = token

	response.Created(c, result)
}

// Login godoc
// @Summary Restore a cached session
// @Description Re-authenticate from the install's cached user id
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Install-ID header string true "Install identifier"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	orch := h.orchestrator(c)
	result := orch.AutoLogin(c.Request.Context())
	if !result.Success {
		response.JSON(c, http.StatusUnauthorized, result, nil)
		return
	}

	token, err := h.sessions.IssueToken(result.User, middleware.GetInstallID(c), result.User.DeviceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	result.Token = token

	response.JSON(c, http.StatusOK, result, nil)
}

// Logout godoc
// @Summary Sign out
// @Description Clear the cached session while keeping the device identity
// @Tags Authentication
// @Produce json
// @Param X-Install-ID header string true "Install identifier"
// @Success 204 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.orchestrator(c).Logout(c.Request.Context())
	response.NoContent(c)
}

// Refresh godoc
// @Summary Refresh session state
// @Description Opportunistically re-check the cached user against the directory
// @Tags Authentication
// @Produce json
// @Param X-Install-ID header string true "Install identifier"
// @Success 200 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	orch := h.orchestrator(c)
	orch.RefreshSession(c.Request.Context())
	response.JSON(c, http.StatusOK, orch.State(), nil)
}

// Session godoc
// @Summary Current session state
// @Description Full auth state snapshot for this install
// @Tags Authentication
// @Produce json
// @Param X-Install-ID header string true "Install identifier"
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.orchestrator(c).State(), nil)
}

// ValidateSession godoc
// @Summary Validate the cached session
// @Description Report whether the cached user still exists remotely
// @Tags Authentication
// @Produce json
// @Param X-Install-ID header string true "Install identifier"
// @Success 200 {object} response.Envelope
// @Router /auth/session/validate [post]
func (h *AuthHandler) ValidateSession(c *gin.Context) {
	valid := h.orchestrator(c).ValidateSession(c.Request.Context())
	response.JSON(c, http.StatusOK, gin.H{"valid": valid}, nil)
}
