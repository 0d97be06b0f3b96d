package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sand/api/internal/apperr"
	"sand/api/internal/middleware"
	"sand/api/internal/service"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.BadRequest("email and password are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// Unknown email and wrong password are indistinguishable to the caller.
		if apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindUnauthorized) {
			err = apperr.Unauthorized("invalid credentials")
		}
		h.fail(c, err)
		return
	}

	middleware.SetSessionCookie(c, h.cfg, result.Session)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"data":    result.User,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cfg.Cookie.Name)
	if err != nil || token == "" {
		h.fail(c, apperr.BadRequest("no session found"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}

	middleware.ClearSessionCookie(c, h.cfg)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, apperr.Unauthorized("not authenticated"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": user})
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

func (h HandlerSet) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.BadRequest("username, email, password and role are required"))
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User created successfully",
		"data":    user,
	})
}
