package service

import (
	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/rules"
)

// ruleViolation turns a failed validation into the BUSINESS_LOGIC_ERROR
// rendered to clients, carrying every error and warning.
func ruleViolation(category rules.Category, res rules.Result) *apperror.Error {
	return apperror.BusinessLogic("Business rule validation failed", string(category), map[string]any{
		"errors":   res.Errors,
		"warnings": res.Warnings,
	})
}

// check returns the warnings of a valid result, or the violation.
func check(res rules.Result, category rules.Category) ([]rules.Warning, error) {
	if !res.Valid {
		return nil, ruleViolation(category, res)
	}
	return res.Warnings, nil
}
