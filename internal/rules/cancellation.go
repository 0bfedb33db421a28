package rules

import (
	"context"
	"fmt"
	"math"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

// loadBookingClass fetches the booking and its class. A nil booking with a
// nil error means the booking does not exist.
func loadBookingClass(ctx context.Context, store Store, in CancellationInput) (*model.Booking, *model.Class, error) {
	booking, err := store.BookingByID(ctx, in.BookingID)
	if apperror.IsNotFound(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load booking: %w", err)
	}
	class, err := store.ClassByID(ctx, booking.ClassID)
	if err != nil {
		return nil, nil, fmt.Errorf("load class of booking: %w", err)
	}
	return booking, class, nil
}

func cancellationRules(store Store) []Rule {
	return []Rule{
		{
			Name:        "cancellation_policy",
			Description: "Cancellations must comply with class policy",
			Priority:    100,
			Enabled:     true,
			Check: func(ctx context.Context, data any, rc RuleContext) (Result, error) {
				in, err := input[CancellationInput](data)
				if err != nil {
					return Result{}, err
				}

				var c collector
				booking, class, err := loadBookingClass(ctx, store, in)
				if err != nil {
					return Result{}, err
				}
				if booking == nil {
					c.critical("booking_id", CodeBookingNotFound, "Booking not found", nil)
					return c.result(), nil
				}

				switch booking.Status {
				case model.BookingCancelled:
					c.fail("", CodeBookingAlreadyCancelled, "Booking is already cancelled", nil)
				case model.BookingCompleted:
					c.fail("", CodeBookingCompleted, "Cannot cancel a completed booking", nil)
				}

				policy := class.Policy()
				hours := HoursUntil(class.StartsAt, rc.Now)
				switch {
				case hours < 0:
					c.fail("", CodeClassAlreadyOccurred, "Cannot cancel booking for a class that has already occurred", nil)
				case hours < float64(policy.HoursBeforeClass):
					pct := RefundPercentage(policy, hours)
					c.warn("", CodeReducedRefund,
						fmt.Sprintf("Cancelling within %d hours reduces refund to %d%%", policy.HoursBeforeClass, int(math.Round(pct))),
						"Consider the financial impact of cancelling at this time",
						map[string]any{"refund_percentage": pct, "hours_until_class": hours})
				}
				return c.result(), nil
			},
		},
		{
			Name:        "refund_calculation",
			Description: "Refund amounts must be calculated correctly",
			Priority:    90,
			Enabled:     true,
			Check: func(ctx context.Context, data any, rc RuleContext) (Result, error) {
				in, err := input[CancellationInput](data)
				if err != nil {
					return Result{}, err
				}

				var c collector
				booking, class, err := loadBookingClass(ctx, store, in)
				if err != nil {
					return Result{}, err
				}
				if booking == nil {
					c.critical("booking_id", CodeBookingNotFound, "Booking not found for refund calculation", nil)
					return c.result(), nil
				}
				if in.RefundAmount == nil {
					return c.result(), nil
				}

				expected, pct := CancellationRefund(booking, class, rc.Now)
				diff := *in.RefundAmount - expected
				if diff < 0 {
					diff = -diff
				}
				if diff > RefundTolerance {
					c.fail("refund_amount", CodeRefundCalculationError, "Refund amount does not match expected calculation",
						map[string]any{
							"expected_refund":   expected,
							"provided_refund":   *in.RefundAmount,
							"refund_percentage": pct,
							"original_amount":   booking.Amount,
						})
				}
				return c.result(), nil
			},
		},
	}
}
