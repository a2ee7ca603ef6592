package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"paper-tracker/middleware"
)

type AuthHandler struct {
	auth *middleware.Authenticator
}

func NewAuthHandler(auth *middleware.Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Token stellt nach erfolgreicher Passwortprüfung ein JWT aus.
func (h *AuthHandler) Token(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	token, expiresAt, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt.Format(time.RFC3339)})
}
