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

// ClassHandler handles the public catalogue and instructor class management.
type ClassHandler struct {
	classService *service.ClassService
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(classService *service.ClassService) *ClassHandler {
	return &ClassHandler{classService: classService}
}

// ListClasses godoc
// GET /api/v1/classes
// Lists upcoming published classes, paginated.
func (h *ClassHandler) ListClasses(c *gin.Context) {
	p, perPage := page(c)
	classes, total, err := h.classService.ListPublished(c.Request.Context(), p, perPage)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"classes": classes}, response.NewPagination(p, perPage, total))
}

// GetClass godoc
// GET /api/v1/classes/:id
func (h *ClassHandler) GetClass(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	class, err := h.classService.GetByID(c.Request.Context(), id)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}

// CreateClass godoc
// POST /api/v1/instructor/classes
// Runs the class creation rules and stores a draft class.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	var req model.CreateClassRequest
	if err := validator.Bind(c, &req); err != nil {
		middleware.Abort(c, err)
		return
	}

	class, warnings, err := h.classService.Create(c.Request.Context(), cl.UserID, &req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusCreated, withWarnings("class", class, warnings))
}

// PublishClass godoc
// POST /api/v1/instructor/classes/:id/publish
func (h *ClassHandler) PublishClass(c *gin.Context) {
	cl, err := claims(c)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	class, err := h.classService.Publish(c.Request.Context(), cl.UserID, id)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class})
}
