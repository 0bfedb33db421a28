package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/service"
)

func newAuth() *service.AuthService {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	return service.NewAuthService(cfg, nil, nil, nil)
}

func token(t *testing.T, auth *service.AuthService, role model.Role) string {
	t.Helper()
	tok, err := auth.GenerateToken(&model.UserProfile{ID: uuid.New(), Email: "ana@example.com", Role: role})
	require.NoError(t, err)
	return tok
}

func call(r *gin.Engine, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	auth := newAuth()
	r := newEngine(RequireAuth(auth))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, string(GetClaims(c).Role))
	})

	w := call(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.CodeAuthentication, decode(t, w).Error.Code)

	assert.Equal(t, http.StatusUnauthorized, call(r, "not-a-jwt").Code)

	w = call(r, token(t, auth, model.RoleStudent))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "student", w.Body.String())
}

func TestOptionalAuthFeedsRateLimitIdentity(t *testing.T) {
	auth := newAuth()
	r := newEngine(OptionalAuth(auth))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, identifier(c)) })

	w := call(r, "")
	assert.Contains(t, w.Body.String(), "ip:")

	w = call(r, token(t, auth, model.RoleStudent))
	assert.Contains(t, w.Body.String(), "user:")
}

func TestRequireRole(t *testing.T) {
	auth := newAuth()
	r := newEngine(RequireAuth(auth), RequireRole(model.RoleInstructor))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := call(r, token(t, auth, model.RoleStudent))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperror.CodeAuthorization, decode(t, w).Error.Code)

	assert.Equal(t, http.StatusOK, call(r, token(t, auth, model.RoleInstructor)).Code)
	assert.Equal(t, http.StatusOK, call(r, token(t, auth, model.RoleAdmin)).Code)
}
