// Package rules implements the business rule engine: named, prioritized rules
// grouped by category and evaluated in priority order against domain input.
package rules

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/metrics"
)

// Category groups the rules evaluated together for one operation.
type Category string

const (
	CategoryUserRegistration    Category = "user_registration"
	CategoryClassCreation       Category = "class_creation"
	CategoryBookingCreation     Category = "booking_creation"
	CategoryPaymentProcessing   Category = "payment_processing"
	CategoryBookingCancellation Category = "booking_cancellation"
)

var (
	ErrRuleNotFound = errors.New("rule not found")
	ErrInvalidRule  = errors.New("invalid rule")
)

// RuleContext carries who is acting and on what. Zero ids mean "not given".
type RuleContext struct {
	UserID       uuid.UUID
	InstructorID uuid.UUID
	ClassID      uuid.UUID
	// Now is the evaluation time; Validate fills it from the validator clock
	// when zero.
	Now time.Time
}

// CheckFunc evaluates a rule. A returned error is reported as a
// VALIDATION_RULE_ERROR entry and does not stop the category.
type CheckFunc func(ctx context.Context, data any, rc RuleContext) (Result, error)

// Rule is a named business rule. Higher priorities run first.
type Rule struct {
	Name        string
	Description string
	Priority    int
	Enabled     bool
	Check       CheckFunc
}

// RuleInfo describes a registered rule.
type RuleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Enabled     bool   `json:"enabled"`
}

// Validator holds the rule registry. It is safe for concurrent use.
type Validator struct {
	mu    sync.RWMutex
	rules map[Category][]Rule
	now   func() time.Time
	log   zerolog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the evaluation clock.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New returns a Validator with no rules.
func New(log zerolog.Logger, opts ...Option) *Validator {
	v := &Validator{
		rules: make(map[Category][]Rule),
		now:   time.Now,
		log:   log.With().Str("component", "business_validator").Logger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Register adds rule to category, keeping the category sorted by descending
// priority. Rules with equal priority keep their registration order.
func (v *Validator) Register(category Category, rule Rule) error {
	if rule.Name == "" || rule.Check == nil {
		return fmt.Errorf("%w: name and check are required", ErrInvalidRule)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	list := v.rules[category]
	if slices.ContainsFunc(list, func(r Rule) bool { return r.Name == rule.Name }) {
		return fmt.Errorf("%w: %s/%s already registered", ErrInvalidRule, category, rule.Name)
	}
	list = append(list, rule)
	slices.SortStableFunc(list, func(a, b Rule) int { return cmp.Compare(b.Priority, a.Priority) })
	v.rules[category] = list
	return nil
}

// SetEnabled toggles a registered rule.
func (v *Validator) SetEnabled(category Category, name string, enabled bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	list := v.rules[category]
	for i := range list {
		if list[i].Name == name {
			list[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("%w: %s/%s", ErrRuleNotFound, category, name)
}

// Rules lists the rules of a category in execution order.
func (v *Validator) Rules(category Category) []RuleInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	list := v.rules[category]
	out := make([]RuleInfo, 0, len(list))
	for _, r := range list {
		out = append(out, RuleInfo{Name: r.Name, Description: r.Description, Priority: r.Priority, Enabled: r.Enabled})
	}
	return out
}

// Categories lists the categories that have rules, sorted by name.
func (v *Validator) Categories() []Category {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Category, 0, len(v.rules))
	for c := range v.rules {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// HasCategory reports whether category has any registered rule.
func (v *Validator) HasCategory(category Category) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.rules[category]) > 0
}

// Validate runs the enabled rules of category in priority order and merges
// their findings. It stops after the first rule that reports a critical
// error. An unknown category yields a valid, empty result.
func (v *Validator) Validate(ctx context.Context, category Category, data any, rc RuleContext) Result {
	v.mu.RLock()
	list := slices.Clone(v.rules[category])
	v.mu.RUnlock()

	if rc.Now.IsZero() {
		rc.Now = v.now()
	}

	res := Result{Errors: []Issue{}, Warnings: []Warning{}}
	halted := false

	for _, rule := range list {
		if !rule.Enabled {
			continue
		}

		out, err := v.run(ctx, rule, data, rc)
		if err != nil {
			v.log.Warn().Err(err).
				Str("category", string(category)).
				Str("rule", rule.Name).
				Msg("Validation rule failed")
			metrics.ValidationRuleErrorsTotal.WithLabelValues(string(category), rule.Name).Inc()

			res.Errors = append(res.Errors, Issue{
				Code:     CodeRuleError,
				Message:  fmt.Sprintf("Validation rule %q encountered an error", rule.Name),
				Severity: SeverityError,
				Context:  map[string]any{"rule": rule.Name, "error": err.Error()},
			})
			continue
		}

		res.Errors = append(res.Errors, out.Errors...)
		res.Warnings = append(res.Warnings, out.Warnings...)

		if out.HasCritical() {
			halted = true
			break
		}
	}

	res.Valid = len(res.Errors) == 0

	if len(list) > 0 {
		outcome := "valid"
		switch {
		case halted:
			outcome = "halted"
		case !res.Valid:
			outcome = "invalid"
		}
		metrics.ValidationsTotal.WithLabelValues(string(category), outcome).Inc()
	}
	return res
}

// run calls the rule, turning a panic into an error.
func (v *Validator) run(ctx context.Context, rule Rule, data any, rc RuleContext) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return rule.Check(ctx, data, rc)
}

// input extracts the typed input of a rule from data, accepting T or *T.
func input[T any](data any) (T, error) {
	var zero T
	switch v := data.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	return zero, fmt.Errorf("unexpected input %T, want %T", data, zero)
}
