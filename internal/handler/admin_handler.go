package handler

import (
	"net/http"

	"github.com/citygallery/citygallery/internal/dto"
	"github.com/citygallery/citygallery/internal/service"
	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/citygallery/citygallery/pkg/response"
	"github.com/citygallery/citygallery/pkg/validator"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes user management; every route behind it runs
// after the admin middleware.
type AdminHandler struct {
	auth service.AuthService
}

func NewAdminHandler(auth service.AuthService) *AdminHandler {
	return &AdminHandler{auth: auth}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) UpdateUser(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.AdminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(validator.FormatValidationError(err)))
		return
	}

	user, err := h.auth.AdminUpdateUser(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	deletedID, err := h.auth.DeleteUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedId": deletedID})
}
