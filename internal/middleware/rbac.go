package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

// RequireRole checks that the JWT carries one of roles. Admins pass every
// role check.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			Abort(c, apperror.Authentication("Authorization token required"))
			return
		}

		if claims.Role == model.RoleAdmin || slices.Contains(roles, claims.Role) {
			c.Next()
			return
		}

		Abort(c, apperror.Authorization("Insufficient role for this action", c.FullPath(), c.Request.Method))
	}
}
