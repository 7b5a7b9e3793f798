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

// UserHandler exposes directory reads and admin maintenance.
type UserHandler struct {
	directory *service.DirectoryService
}

// NewUserHandler creates a new handler.
func NewUserHandler(directory *service.DirectoryService) *UserHandler {
	return &UserHandler{directory: directory}
}

// Me godoc
// @Summary Current user profile
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// GetUser godoc
// @Summary Fetch a user document
// @Tags Users
// @Produce json
// @Param id path string true "User id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id := c.Param("id")

	// Non-admins may only read their own document.
	caller := middleware.GetCurrentUser(c)
	if caller == nil || (!caller.IsAdmin && caller.UserID != id) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "cannot read another user's document"))
		return
	}

	user, err := h.directory.GetUserByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if user == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateUser godoc
// @Summary Update profile fields
// @Description Partial update of rank and name fields
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User id"
// @Param payload body models.UserUpdate true "Fields to update"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/{id} [patch]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var update models.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	if err := h.directory.UpdateUser(c.Request.Context(), c.Param("id"), update); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeactivateUser godoc
// @Summary Deactivate a user
// @Description Strip privileges; user documents are never deleted
// @Tags Users
// @Produce json
// @Param id path string true "User id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id} [delete]
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	if err := h.directory.DeactivateUser(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
