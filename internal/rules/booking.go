package rules

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

const (
	maxAttendees       = 10
	defaultCutoffHours = 2
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidPhone reports whether s is an E.164 number, ignoring whitespace.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(strings.Join(strings.Fields(s), ""))
}

func bookingRules(store Store) []Rule {
	return []Rule{
		{
			Name:        "class_availability",
			Description: "Class must have available spots for all attendees",
			Priority:    100,
			Enabled:     true,
			Check: func(ctx context.Context, data any, rc RuleContext) (Result, error) {
				in, err := input[BookingInput](data)
				if err != nil {
					return Result{}, err
				}
				requested := max(len(in.Attendees), 1)

				var c collector
				class, err := store.ClassByID(ctx, in.ClassID)
				if apperror.IsNotFound(err) {
					c.critical("class_id", CodeClassNotFound, "Class not found", nil)
					return c.result(), nil
				}
				if err != nil {
					return Result{}, fmt.Errorf("load class: %w", err)
				}

				if class.Status != model.ClassPublished {
					c.fail("class_id", CodeClassNotAvailable, "Class is not available for booking",
						map[string]any{"class_status": class.Status})
				}
				if spots := class.SpotsAvailable(); requested > spots {
					c.fail("attendees", CodeInsufficientCapacity,
						fmt.Sprintf("Not enough spots available. Only %d spot(s) remaining", spots),
						map[string]any{
							"spots_available":      spots,
							"spots_requested":      requested,
							"max_participants":     class.MaxParticipants,
							"current_participants": class.CurrentParticipants,
						})
				}
				if class.StartsAt.Before(rc.Now) {
					c.fail("class_id", CodeClassInPast, "Cannot book a class that has already occurred",
						map[string]any{"class_date": class.StartsAt})
				}
				return c.result(), nil
			},
		},
		{
			Name:        "booking_window",
			Description: "Bookings must be made within the allowed time window",
			Priority:    90,
			Enabled:     true,
			Check: func(ctx context.Context, data any, rc RuleContext) (Result, error) {
				in, err := input[BookingInput](data)
				if err != nil {
					return Result{}, err
				}

				class, err := store.ClassByID(ctx, in.ClassID)
				if apperror.IsNotFound(err) {
					return Pass(), nil
				}
				if err != nil {
					return Result{}, fmt.Errorf("load class: %w", err)
				}

				cutoff := defaultCutoffHours
				if class.BookingCutoffHours != nil && *class.BookingCutoffHours > 0 {
					cutoff = *class.BookingCutoffHours
				}
				hours := HoursUntil(class.StartsAt, rc.Now)

				var c collector
				switch {
				case hours < float64(cutoff):
					c.fail("class_id", CodeBookingWindowClosed,
						fmt.Sprintf("Booking window has closed. Classes must be booked at least %d hour(s) in advance", cutoff),
						map[string]any{"cutoff_hours": cutoff, "hours_until_class": hours, "class_date": class.StartsAt})
				case hours < float64(cutoff+1):
					c.warn("class_id", CodeBookingWindowClosing,
						fmt.Sprintf("Booking window closes in %d hour(s)", int(math.Ceil(hours-float64(cutoff)))),
						"Complete your booking soon to secure your spot", nil)
				}
				return c.result(), nil
			},
		},
		{
			Name:        "duplicate_booking",
			Description: "Users cannot book the same class multiple times",
			Priority:    85,
			Enabled:     true,
			Check: func(ctx context.Context, data any, rc RuleContext) (Result, error) {
				in, err := input[BookingInput](data)
				if err != nil {
					return Result{}, err
				}
				if rc.UserID == uuid.Nil {
					return Pass(), nil
				}

				existing, err := store.ActiveBooking(ctx, rc.UserID, in.ClassID)
				if apperror.IsNotFound(err) {
					return Pass(), nil
				}
				if err != nil {
					return Result{}, fmt.Errorf("load active booking: %w", err)
				}

				var c collector
				c.fail("class_id", CodeDuplicateBooking, "You already have a booking for this class",
					map[string]any{"existing_booking_id": existing.ID, "existing_status": existing.Status})
				return c.result(), nil
			},
		},
		{
			Name:        "attendee_validation",
			Description: "All attendees must have valid information",
			Priority:    80,
			Enabled:     true,
			Check: func(_ context.Context, data any, _ RuleContext) (Result, error) {
				in, err := input[BookingInput](data)
				if err != nil {
					return Result{}, err
				}

				var c collector
				if len(in.Attendees) == 0 {
					c.fail("attendees", CodeAttendeesRequired, "At least one attendee is required", nil)
					return c.result(), nil
				}
				if len(in.Attendees) > maxAttendees {
					c.fail("attendees", CodeTooManyAttendees,
						fmt.Sprintf("Maximum %d attendees per booking", maxAttendees),
						map[string]any{"max_attendees": maxAttendees, "provided_attendees": len(in.Attendees)})
				}

				for i, a := range in.Attendees {
					if strings.TrimSpace(a.Name) == "" {
						c.fail(fmt.Sprintf("attendees[%d].name", i), CodeAttendeeNameRequired,
							fmt.Sprintf("Attendee %d name is required", i+1), nil)
					}
					if !ValidEmail(a.Email) {
						c.fail(fmt.Sprintf("attendees[%d].email", i), CodeAttendeeEmailInvalid,
							fmt.Sprintf("Attendee %d must have a valid email address", i+1), nil)
					}
					if a.Phone != "" && !ValidPhone(a.Phone) {
						c.warn(fmt.Sprintf("attendees[%d].phone", i), CodeAttendeePhoneInvalid,
							fmt.Sprintf("Attendee %d phone number appears to be invalid", i+1),
							"Verify the phone number format", nil)
					}
				}
				return c.result(), nil
			},
		},
		{
			Name:        "payment_method",
			Description: "Valid payment method must be provided",
			Priority:    70,
			Enabled:     true,
			Check: func(_ context.Context, data any, _ RuleContext) (Result, error) {
				in, err := input[BookingInput](data)
				if err != nil {
					return Result{}, err
				}
				var c collector
				if strings.TrimSpace(in.PaymentMethodID) == "" {
					c.warn("payment_method_id", CodePaymentMethodMissing, "No payment method provided",
						"Payment will be required before booking confirmation", nil)
				}
				return c.result(), nil
			},
		},
	}
}
