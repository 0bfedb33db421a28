package rules

// Severity grades a validation error. A critical error stops the remaining
// rules of the category.
type Severity string

const (
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Issue is a validation error produced by a rule.
type Issue struct {
	Field    string         `json:"field,omitempty"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Context  map[string]any `json:"context,omitempty"`
}

// Warning is a non-blocking finding.
type Warning struct {
	Field      string         `json:"field,omitempty"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// Result is the outcome of one rule or of a whole category.
type Result struct {
	Valid    bool      `json:"valid"`
	Errors   []Issue   `json:"errors"`
	Warnings []Warning `json:"warnings"`
}

// Pass is the result of a rule with nothing to report.
func Pass() Result {
	return Result{Valid: true}
}

// HasCritical reports whether any error is critical.
func (r Result) HasCritical() bool {
	for _, e := range r.Errors {
		if e.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// HasCode reports whether an error or warning carries code.
func (r Result) HasCode(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// collector builds a rule Result.
type collector struct {
	errors   []Issue
	warnings []Warning
}

func (c *collector) fail(field, code, message string, ctx map[string]any) {
	c.errors = append(c.errors, Issue{Field: field, Code: code, Message: message, Severity: SeverityError, Context: ctx})
}

func (c *collector) critical(field, code, message string, ctx map[string]any) {
	c.errors = append(c.errors, Issue{Field: field, Code: code, Message: message, Severity: SeverityCritical, Context: ctx})
}

func (c *collector) warn(field, code, message, suggestion string, ctx map[string]any) {
	c.warnings = append(c.warnings, Warning{Field: field, Code: code, Message: message, Suggestion: suggestion, Context: ctx})
}

func (c *collector) result() Result {
	return Result{Valid: len(c.errors) == 0, Errors: c.errors, Warnings: c.warnings}
}
