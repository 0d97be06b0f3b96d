package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sand/api/internal/apperr"
	"sand/api/internal/middleware"
	"sand/api/internal/models"
	"sand/api/internal/service"
)

func userID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.BadRequest("invalid user id")
	}
	return id, nil
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(users) == 0 {
		h.fail(c, apperr.NotFound("no users found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.BadRequest("invalid request body"))
		return
	}

	update := models.UserUpdate{Username: req.Username, Email: req.Email}
	if req.Role != nil {
		role := models.UserRole(*req.Role)
		update.Role = &role
	}

	user, err := h.auth.UpdateUser(c.Request.Context(), id, update)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"data":    user,
	})
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.auth.DeleteUser(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.BadRequest("old_password and new_password are required"))
		return
	}

	actor, _ := middleware.CurrentUser(c)
	err = h.auth.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		UserID:      id,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
		Actor:       actor,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

type adminPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

func (h HandlerSet) AdminResetPassword(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var req adminPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.BadRequest("new_password is required"))
		return
	}

	actor, _ := middleware.CurrentUser(c)
	err = h.auth.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		UserID:      id,
		NewPassword: req.NewPassword,
		Actor:       actor,
		AdminReset:  true,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
