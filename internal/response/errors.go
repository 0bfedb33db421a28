package response

import (
	"net/http"
	"time"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
)

// FieldsKey is the error context key holding per-field validation messages.
const FieldsKey = "fields"

const maskedMessage = "An unexpected error occurred"

// ErrorBody represents a structured error response.
type ErrorBody struct {
	Code      apperror.Code     `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   map[string]any    `json:"details,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// NewErrorBody renders e for clients. Server-side failures keep their code
// but lose their message and context; upstream and maintenance errors are
// built from safe messages and pass through.
func NewErrorBody(e *apperror.Error) *ErrorBody {
	body := &ErrorBody{
		Code:      e.Code,
		Message:   e.Message,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
	}
	if e.Timestamp.IsZero() {
		body.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if masked(e) {
		body.Message = maskedMessage
		return body
	}

	for k, v := range e.Context {
		if k == "original_error" {
			continue
		}
		if k == FieldsKey {
			if fields, ok := v.(map[string]string); ok {
				body.Fields = fields
				continue
			}
		}
		if body.Details == nil {
			body.Details = make(map[string]any, len(e.Context))
		}
		body.Details[k] = v
	}
	return body
}

func masked(e *apperror.Error) bool {
	if e.StatusCode < http.StatusInternalServerError {
		return false
	}
	return e.Code != apperror.CodeExternalService && e.Code != apperror.CodeMaintenance
}
