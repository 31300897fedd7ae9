package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"eventbooking/internal/middleware"
	"eventbooking/internal/models"
)

// RegisterUser - POST /api/users
func (h *Handlers) RegisterUser(c *gin.Context) {
	var req models.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.services.Users.Register(c.Request.Context(), req.Email, req.Name, middleware.HashPassword(req.Password))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewUserResponse(*user))
}

// ToggleBlockUser - PATCH /api/users/:id/block
func (h *Handlers) ToggleBlockUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.services.Users.ToggleBlock(c.Request.Context(), p, id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewUserResponse(*user))
}

// IssueToken - POST /api/auth/token
func (h *Handlers) IssueToken(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if len(h.tokenSecret) == 0 {
		badRequest(c, errors.New("bearer tokens are disabled"))
		return
	}

	user := &models.User{ID: p.UserID, Role: p.Role, IsActive: p.IsActive}
	token, err := middleware.IssueToken(h.tokenSecret, user, h.tokenTTL)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokenTTL).UTC(),
	})
}
