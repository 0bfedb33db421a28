package service

import (
	"context"
	"errors"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/rules"
)

// CategoryRules lists the rules registered for one category.
type CategoryRules struct {
	Category rules.Category   `json:"category"`
	Rules    []rules.RuleInfo `json:"rules"`
}

// RuleService exposes the business validator to the API.
type RuleService struct {
	validator *rules.Validator
}

// NewRuleService creates a new RuleService.
func NewRuleService(validator *rules.Validator) *RuleService {
	return &RuleService{validator: validator}
}

// DryRun evaluates raw JSON against a category without side effects.
func (s *RuleService) DryRun(ctx context.Context, category rules.Category, raw []byte, rc rules.RuleContext) (rules.Result, error) {
	if !s.validator.HasCategory(category) {
		return rules.Result{}, apperror.NotFound("rule category", string(category))
	}
	data, err := rules.DecodeInput(category, raw)
	if err != nil {
		return rules.Result{}, apperror.Validation("Request body does not match the category input", "body", map[string]any{
			"reason": err.Error(),
		})
	}
	return s.validator.Validate(ctx, category, data, rc), nil
}

// List returns every category with its rules in execution order.
func (s *RuleService) List() []CategoryRules {
	categories := s.validator.Categories()
	out := make([]CategoryRules, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryRules{Category: c, Rules: s.validator.Rules(c)})
	}
	return out
}

// SetEnabled toggles one rule.
func (s *RuleService) SetEnabled(category rules.Category, name string, enabled bool) error {
	err := s.validator.SetEnabled(category, name, enabled)
	if errors.Is(err, rules.ErrRuleNotFound) {
		return apperror.NotFound("rule", string(category)+"/"+name)
	}
	return err
}
