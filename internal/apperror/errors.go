// Package apperror defines the typed error used across service boundaries and
// the tracker that normalizes, logs and counts every error surfaced to clients.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Code is the machine-readable error identifier rendered in the API envelope.
type Code string

const (
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeAuthentication  Code = "AUTHENTICATION_ERROR"
	CodeAuthorization   Code = "AUTHORIZATION_ERROR"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT_ERROR"
	CodeBusinessLogic   Code = "BUSINESS_LOGIC_ERROR"
	CodeExternalService Code = "EXTERNAL_SERVICE_ERROR"
	CodeRateLimit       Code = "RATE_LIMIT_ERROR"
	CodeMaintenance     Code = "MAINTENANCE_ERROR"

	CodeInternal  Code = "INTERNAL_ERROR"
	CodeDatabase  Code = "DATABASE_ERROR"
	CodePayment   Code = "PAYMENT_ERROR"
	CodeTimeout   Code = "TIMEOUT_ERROR"
	CodeNetwork   Code = "NETWORK_ERROR"
	CodeCancelled Code = "REQUEST_CANCELLED"
)

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is wrapped by repository errors that report a state the
	// caller cannot act on, such as a duplicate or a sold out class.
	ErrConflict = errors.New("conflicting state")
)

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == CodeNotFound
}

// StatusClientClosedRequest is the non-standard status used when the caller
// went away before the request finished.
const StatusClientClosedRequest = 499

// Error is the normalized application error.
type Error struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"status_code"`
	Context    map[string]any `json:"context,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	RequestID  string         `json:"request_id,omitempty"`

	cause error
}

// New builds an Error with the given code, message and HTTP status.
func New(code Code, message string, status int, ctx map[string]any) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Context:    ctx,
		Timestamp:  time.Now().UTC(),
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Wrap attaches an underlying cause. The cause is never rendered to clients.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

// WithRequestID stamps the request id if none is set yet.
func (e *Error) WithRequestID(id string) *Error {
	if e.RequestID == "" {
		e.RequestID = id
	}
	return e
}

// Is matches two *Error values by code so errors.Is works against the
// sentinel-style constructors below.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func merge(base map[string]any, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		if v != nil && v != "" {
			out[k] = v
		}
	}
	for k, v := range extra {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func Validation(message, field string, ctx map[string]any) *Error {
	return New(CodeValidation, message, http.StatusBadRequest, merge(map[string]any{"field": field}, ctx))
}

func Authentication(message string) *Error {
	return New(CodeAuthentication, message, http.StatusUnauthorized, nil)
}

func Authorization(message, resource, action string) *Error {
	return New(CodeAuthorization, message, http.StatusForbidden,
		merge(map[string]any{"resource": resource, "action": action}, nil))
}

func NotFound(resource, id string) *Error {
	return New(CodeNotFound, resource+" not found", http.StatusNotFound,
		merge(map[string]any{"resource": resource, "id": id}, nil))
}

func Conflict(message, resource string) *Error {
	return New(CodeConflict, message, http.StatusConflict, merge(map[string]any{"resource": resource}, nil))
}

// BusinessLogic reports a violated business rule.
func BusinessLogic(message, rule string, ctx map[string]any) *Error {
	return New(CodeBusinessLogic, message, http.StatusUnprocessableEntity, merge(map[string]any{"rule": rule}, ctx))
}

// ExternalService reports a failing dependency such as the database or payment provider.
func ExternalService(service, message string, cause error, ctx map[string]any) *Error {
	extra := map[string]any{"service": service}
	if cause != nil {
		extra["original_error"] = cause.Error()
	}
	return New(CodeExternalService, fmt.Sprintf("%s error: %s", service, message), http.StatusBadGateway,
		merge(extra, ctx)).Wrap(cause)
}

func RateLimit(limit int, window time.Duration) *Error {
	return New(CodeRateLimit, fmt.Sprintf("Rate limit exceeded: %d requests per %s", limit, window),
		http.StatusTooManyRequests, map[string]any{"limit": limit, "window_ms": window.Milliseconds()})
}

func Maintenance(message, estimatedRestore string) *Error {
	if message == "" {
		message = "Service temporarily unavailable for maintenance"
	}
	return New(CodeMaintenance, message, http.StatusServiceUnavailable,
		merge(map[string]any{"estimated_restore": estimatedRestore}, nil))
}

func Internal(message string, cause error) *Error {
	return New(CodeInternal, message, http.StatusInternalServerError, nil).Wrap(cause)
}

// Convert normalizes any error into an *Error. Typed errors pass through;
// everything else is classified by type first and by message text second.
func Convert(err error, requestID string) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.WithRequestID(requestID)
	}

	message := err.Error()
	if message == "" {
		message = "An unexpected error occurred"
	}
	lower := strings.ToLower(message)

	code := CodeInternal
	status := http.StatusInternalServerError
	ctx := map[string]any{}

	var pgErr *pgconn.PgError
	var netErr net.Error

	switch {
	case errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows):
		code, status = CodeNotFound, http.StatusNotFound
	case errors.Is(err, ErrConflict):
		code, status = CodeConflict, http.StatusConflict
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		code, status = CodeConflict, http.StatusConflict
		ctx["constraint"] = pgErr.ConstraintName
	case errors.As(err, &pgErr):
		code = CodeDatabase
		ctx["database"] = "postgres"
		ctx["sqlstate"] = pgErr.Code
	case errors.Is(err, context.Canceled):
		code, status = CodeCancelled, StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		code, status = CodeTimeout, http.StatusRequestTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		code, status = CodeTimeout, http.StatusRequestTimeout
	case errors.As(err, &netErr):
		code, status = CodeNetwork, http.StatusBadGateway
	case strings.Contains(lower, "database") || strings.Contains(lower, "postgres"):
		code = CodeDatabase
		ctx["database"] = "postgres"
	case strings.Contains(lower, "payment") || strings.Contains(lower, "stripe"):
		code = CodePayment
		ctx["payment_provider"] = "stripe"
	case strings.Contains(lower, "timeout"):
		code, status = CodeTimeout, http.StatusRequestTimeout
	case strings.Contains(lower, "network") || strings.Contains(lower, "connection refused"):
		code, status = CodeNetwork, http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		ctx["original_error"] = fmt.Sprintf("%T", err)
	}
	if len(ctx) == 0 {
		ctx = nil
	}

	out := New(code, message, status, ctx).Wrap(err)
	out.RequestID = requestID
	return out
}
