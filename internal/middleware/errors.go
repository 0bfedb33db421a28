package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/response"
)

// ErrorRenderer turns the last error pushed with c.Error into the error
// envelope. Every error goes through the tracker once.
func ErrorRenderer(tracker *apperror.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		e := tracker.Handle(last.Err, response.RequestID(c))
		c.Header("Cache-Control", "no-store")
		response.Fail(c, e)
	}
}

// Abort records err for ErrorRenderer and stops the chain.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Recovery converts a panic into INTERNAL_ERROR. It must run inside
// ErrorRenderer.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", response.RequestID(c)).
					Str("path", c.Request.URL.Path).
					Bytes("stack", debug.Stack()).
					Msgf("Recovered panic: %v", r)
				Abort(c, apperror.Internal("An unexpected error occurred", fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
