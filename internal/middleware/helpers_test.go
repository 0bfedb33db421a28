package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/response"
)

// newEngine mounts the error envelope stack in front of extra.
func newEngine(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(response.RequestIDMiddleware(), ErrorRenderer(apperror.NewTracker(zerolog.Nop())), Recovery(zerolog.Nop()))
	r.Use(extra...)
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
