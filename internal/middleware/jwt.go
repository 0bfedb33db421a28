package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

// OptionalAuth attaches the claims of a valid bearer token and lets
// anonymous or invalid requests through. RequireAuth decides later.
func OptionalAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := bearerToken(c); tokenStr != "" {
			if claims, err := authService.ValidateToken(tokenStr); err == nil {
				c.Set(ContextKeyClaims, claims)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without valid claims. It validates the token
// itself when OptionalAuth did not run.
func RequireAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetClaims(c) != nil {
			c.Next()
			return
		}

		tokenStr := bearerToken(c)
		if tokenStr == "" {
			Abort(c, apperror.Authentication("Authorization token required"))
			return
		}
		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			Abort(c, apperror.Authentication("Invalid or expired token"))
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireWSAuth validates the JWT from the ?token= query parameter of a
// WebSocket upgrade request.
func RequireWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			Abort(c, apperror.Authentication("Authorization token required"))
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			Abort(c, apperror.Authentication("Invalid or expired token"))
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func bearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
