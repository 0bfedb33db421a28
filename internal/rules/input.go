package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/model"
)

// RegistrationInput is evaluated by the user_registration rules.
// DateOfBirth is the raw YYYY-MM-DD value from the request.
type RegistrationInput struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
}

// ClassInput is evaluated by the class_creation rules. The acting
// instructor comes from RuleContext.InstructorID.
type ClassInput struct {
	Title           string             `json:"title"`
	Price           int64              `json:"price"`
	DurationMinutes int                `json:"duration_minutes"`
	MaxParticipants int                `json:"max_participants"`
	LocationType    model.LocationType `json:"location_type"`
	StartsAt        time.Time          `json:"starts_at"`
}

// BookingInput is evaluated by the booking_creation rules.
type BookingInput struct {
	ClassID         uuid.UUID        `json:"class_id"`
	Attendees       []model.Attendee `json:"attendees"`
	PaymentMethodID string           `json:"payment_method_id"`
}

// PaymentInput is evaluated by the payment_processing rules.
type PaymentInput struct {
	BookingID uuid.UUID `json:"booking_id"`
	Amount    int64     `json:"amount"`
}

// CancellationInput is evaluated by the booking_cancellation rules. A nil
// RefundAmount skips the refund check.
type CancellationInput struct {
	BookingID    uuid.UUID `json:"booking_id"`
	RefundAmount *int64    `json:"refund_amount"`
	Reason       string    `json:"reason"`
}

// DecodeInput parses a JSON document into the input type of a built-in
// category.
func DecodeInput(category Category, raw []byte) (any, error) {
	var target any
	switch category {
	case CategoryUserRegistration:
		target = &RegistrationInput{}
	case CategoryClassCreation:
		target = &ClassInput{}
	case CategoryBookingCreation:
		target = &BookingInput{}
	case CategoryPaymentProcessing:
		target = &PaymentInput{}
	case CategoryBookingCancellation:
		target = &CancellationInput{}
	default:
		return nil, fmt.Errorf("no input type for category %q", category)
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s input: %w", category, err)
	}
	return target, nil
}
