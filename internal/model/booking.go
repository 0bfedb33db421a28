package model

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// PaymentStatus tracks the money side of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Attendee is one person covered by a booking.
type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Booking reserves spots in a class. Amounts are in cents.
type Booking struct {
	ID                 uuid.UUID     `json:"id"`
	UserID             uuid.UUID     `json:"user_id"`
	ClassID            uuid.UUID     `json:"class_id"`
	Attendees          []Attendee    `json:"attendees"`
	Amount             int64         `json:"amount"`
	CommissionAmount   int64         `json:"commission_amount"`
	InstructorPayout   int64         `json:"instructor_payout"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentMethodID    *string       `json:"payment_method_id,omitempty"`
	RefundAmount       *int64        `json:"refund_amount,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	Notes              *string       `json:"notes,omitempty"`
	ConfirmedAt        *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Active reports whether the booking still holds spots.
func (b *Booking) Active() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// CreateBookingRequest is the payload for booking a class. Attendee details
// are checked by the booking rules.
type CreateBookingRequest struct {
	ClassID         uuid.UUID  `json:"class_id" binding:"required"`
	Attendees       []Attendee `json:"attendees"`
	PaymentMethodID string     `json:"payment_method_id" binding:"max=255"`
	Notes           string     `json:"notes" binding:"max=1000"`
}

// ConfirmBookingRequest records the payment captured for a booking.
type ConfirmBookingRequest struct {
	Amount          int64  `json:"amount" binding:"required,min=1"`
	PaymentMethodID string `json:"payment_method_id" binding:"max=255"`
}

// CancelBookingRequest cancels a booking. RefundAmount, when given, must
// agree with the cancellation policy.
type CancelBookingRequest struct {
	Reason       string `json:"reason" binding:"max=500"`
	RefundAmount *int64 `json:"refund_amount" binding:"omitempty,min=0"`
}
