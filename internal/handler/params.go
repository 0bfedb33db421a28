package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/middleware"
	"github.com/hobbyist/hobbyist-api/internal/service"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// pathID parses a UUID path parameter.
func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("Invalid id", name, nil)
	}
	return id, nil
}

// queryID parses an optional UUID query parameter. Absent means uuid.Nil.
func queryID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.Validation("Invalid id", name, nil)
	}
	return id, nil
}

// page reads ?page= and ?per_page= with defaults and bounds.
func page(c *gin.Context) (int, int) {
	p, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || p < 1 {
		p = 1
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	return p, min(perPage, maxPerPage)
}

// claims returns the authenticated caller. Routes using it sit behind
// RequireAuth.
func claims(c *gin.Context) (*service.Claims, error) {
	cl := middleware.GetClaims(c)
	if cl == nil {
		return nil, apperror.Authentication("Authorization token required")
	}
	return cl, nil
}

// withWarnings wraps a payload with the rule warnings of a passing validation.
func withWarnings(key string, v any, warnings any) gin.H {
	return gin.H{key: v, "warnings": warnings}
}
