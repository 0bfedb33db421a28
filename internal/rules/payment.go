package rules

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

func paymentRules(store Store) []Rule {
	return []Rule{
		{
			Name:        "amount_verification",
			Description: "Payment amounts must match booking totals",
			Priority:    100,
			Enabled:     true,
			Check: func(ctx context.Context, data any, _ RuleContext) (Result, error) {
				in, err := input[PaymentInput](data)
				if err != nil {
					return Result{}, err
				}
				if in.BookingID == uuid.Nil {
					return Pass(), nil
				}

				var c collector
				booking, err := store.BookingByID(ctx, in.BookingID)
				if apperror.IsNotFound(err) {
					c.critical("booking_id", CodeBookingNotFound, "Associated booking not found", nil)
					return c.result(), nil
				}
				if err != nil {
					return Result{}, fmt.Errorf("load booking: %w", err)
				}

				if booking.Amount != in.Amount {
					c.critical("amount", CodeAmountMismatch, "Payment amount does not match booking total",
						map[string]any{"expected_amount": booking.Amount, "provided_amount": in.Amount})
				}
				return c.result(), nil
			},
		},
		{
			Name:        "instructor_payout",
			Description: "Instructor must have valid payout account",
			Priority:    90,
			Enabled:     true,
			Check: func(ctx context.Context, _ any, rc RuleContext) (Result, error) {
				if rc.InstructorID == uuid.Nil {
					return Pass(), nil
				}

				var c collector
				inst, err := store.InstructorByID(ctx, rc.InstructorID)
				if apperror.IsNotFound(err) {
					c.critical("", CodeInstructorNotFound, "Instructor not found", nil)
					return c.result(), nil
				}
				if err != nil {
					return Result{}, fmt.Errorf("load instructor: %w", err)
				}

				switch {
				case inst.PayoutAccountID == nil || *inst.PayoutAccountID == "":
					c.fail("", CodePayoutAccountMissing, "Instructor has not set up a payout account", nil)
				case inst.PayoutAccountStatus != model.PayoutActive:
					c.fail("", CodePayoutAccountInactive, "Instructor payout account is not active",
						map[string]any{"account_status": inst.PayoutAccountStatus})
				}
				return c.result(), nil
			},
		},
	}
}
