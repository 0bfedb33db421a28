package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hobbyist/hobbyist-api/internal/middleware"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/response"
	"github.com/hobbyist/hobbyist-api/internal/service"
	"github.com/hobbyist/hobbyist-api/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register godoc
// POST /api/v1/auth/register
// Runs the registration rules and creates a student account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := validator.Bind(c, &req); err != nil {
		middleware.Abort(c, err)
		return
	}

	user, warnings, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":    token,
		"user":     user,
		"warnings": warnings,
	})
}

// Login godoc
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := validator.Bind(c, &req); err != nil {
		middleware.Abort(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	user, err := h.authService.Me(c.Request.Context(), cl.UserID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}
