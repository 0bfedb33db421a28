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

// InstructorHandler handles instructor onboarding and verification.
type InstructorHandler struct {
	instructorService *service.InstructorService
	authService       *service.AuthService
}

// NewInstructorHandler creates a new InstructorHandler.
func NewInstructorHandler(instructorService *service.InstructorService, authService *service.AuthService) *InstructorHandler {
	return &InstructorHandler{instructorService: instructorService, authService: authService}
}

// Become godoc
// POST /api/v1/instructors
// Opens an instructor profile and returns a token carrying the new role.
func (h *InstructorHandler) Become(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	var req model.BecomeInstructorRequest
	if err := validator.Bind(c, &req); err != nil {
		middleware.Abort(c, err)
		return
	}

	ctx := c.Request.Context()
	profile, err := h.instructorService.Become(ctx, cl.UserID, &req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	user, err := h.authService.Me(ctx, cl.UserID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"instructor": profile, "token": token})
}

// UpdatePayout godoc
// PUT /api/v1/instructors/me/payout
func (h *InstructorHandler) UpdatePayout(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	var req model.UpdatePayoutRequest
	if err := validator.Bind(c, &req); err != nil {
		middleware.Abort(c, err)
		return
	}

	profile, err := h.instructorService.UpdatePayout(c.Request.Context(), cl.UserID, &req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"instructor": profile})
}

// Verify godoc
// POST /api/v1/admin/instructors/:id/verify
func (h *InstructorHandler) Verify(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	if err := h.instructorService.Verify(c.Request.Context(), id); err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"instructor_id": id, "verified": true})
}
