package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_PassesTypedErrorsThrough(t *testing.T) {
	orig := NotFound("class", "c-1")
	wrapped := fmt.Errorf("load class: %w", orig)

	got := Convert(wrapped, "req-1")

	require.Same(t, orig, got)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, http.StatusNotFound, got.StatusCode)
}

func TestConvert_Classification(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   Code
		status int
	}{
		{"repository miss", fmt.Errorf("get class: %w", ErrNotFound), CodeNotFound, http.StatusNotFound},
		{"domain conflict", fmt.Errorf("create booking: %w", fmt.Errorf("sold out: %w", ErrConflict)), CodeConflict, http.StatusConflict},
		{"no rows", fmt.Errorf("get booking: %w", pgx.ErrNoRows), CodeNotFound, http.StatusNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "user_profiles_email_key"}, CodeConflict, http.StatusConflict},
		{"other pg error", &pgconn.PgError{Code: "40001"}, CodeDatabase, http.StatusInternalServerError},
		{"deadline", context.DeadlineExceeded, CodeTimeout, http.StatusRequestTimeout},
		{"cancelled", context.Canceled, CodeCancelled, StatusClientClosedRequest},
		{"database text", errors.New("database is unreachable"), CodeDatabase, http.StatusInternalServerError},
		{"stripe text", errors.New("stripe: card declined"), CodePayment, http.StatusInternalServerError},
		{"timeout text", errors.New("upstream timeout"), CodeTimeout, http.StatusRequestTimeout},
		{"network text", errors.New("network unreachable"), CodeNetwork, http.StatusBadGateway},
		{"anything else", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Convert(tc.err, "")
			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.StatusCode)
			assert.ErrorIs(t, got, tc.err)
		})
	}
}

func TestConvert_ServerErrorsRecordOriginalType(t *testing.T) {
	got := Convert(errors.New("boom"), "")
	assert.Equal(t, "*errors.errorString", got.Context["original_error"])

	got = Convert(errors.New("network down"), "")
	assert.Contains(t, got.Context, "original_error")

	got = Convert(context.DeadlineExceeded, "")
	assert.NotContains(t, got.Context, "original_error")
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("bad", "email", nil).StatusCode)
	assert.Equal(t, "email", Validation("bad", "email", nil).Context["field"])
	assert.Nil(t, Validation("bad", "", nil).Context)
	assert.Equal(t, http.StatusUnauthorized, Authentication("no token").StatusCode)
	assert.Equal(t, http.StatusForbidden, Authorization("no", "class", "publish").StatusCode)
	assert.Equal(t, http.StatusConflict, Conflict("dup", "booking").StatusCode)
	assert.Equal(t, http.StatusUnprocessableEntity, BusinessLogic("nope", "booking_creation", nil).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, RateLimit(10, 0).StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, Maintenance("", "").StatusCode)

	ext := ExternalService("database", "unavailable", errors.New("dial tcp"), nil)
	assert.Equal(t, http.StatusBadGateway, ext.StatusCode)
	assert.Equal(t, "database error: unavailable", ext.Message)
	assert.Equal(t, "dial tcp", ext.Context["original_error"])
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("booking", "b-1"))
	assert.ErrorIs(t, err, NotFound("class", "other"))
	assert.NotErrorIs(t, err, Conflict("x", "y"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("x: %w", ErrNotFound)))
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.True(t, IsNotFound(NotFound("class", "c-1")))
	assert.False(t, IsNotFound(errors.New("boom")))
}
