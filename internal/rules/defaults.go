package rules

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultRules returns the built-in rule set keyed by category.
func DefaultRules(store Store) map[Category][]Rule {
	return map[Category][]Rule{
		CategoryUserRegistration:    registrationRules(store),
		CategoryClassCreation:       classRules(store),
		CategoryBookingCreation:     bookingRules(store),
		CategoryPaymentProcessing:   paymentRules(store),
		CategoryBookingCancellation: cancellationRules(store),
	}
}

// NewDefault returns a Validator loaded with the built-in rules.
func NewDefault(store Store, log zerolog.Logger, opts ...Option) (*Validator, error) {
	v := New(log, opts...)
	for category, list := range DefaultRules(store) {
		for _, r := range list {
			if err := v.Register(category, r); err != nil {
				return nil, fmt.Errorf("register %s rules: %w", category, err)
			}
		}
	}
	return v, nil
}
