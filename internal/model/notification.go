package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NotificationKind names a booking lifecycle event.
type NotificationKind string

const (
	NotificationBookingCreated   NotificationKind = "booking_created"
	NotificationBookingConfirmed NotificationKind = "booking_confirmed"
	NotificationBookingCancelled NotificationKind = "booking_cancelled"
)

// BookingEvent is pushed to the booking events queue and turned into a
// notification by the worker.
type BookingEvent struct {
	Kind         NotificationKind `json:"kind"`
	BookingID    uuid.UUID        `json:"booking_id"`
	UserID       uuid.UUID        `json:"user_id"`
	ClassID      uuid.UUID        `json:"class_id"`
	Amount       int64            `json:"amount"`
	RefundAmount *int64           `json:"refund_amount,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

// Notification is a persisted message for a user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Payload   json.RawMessage  `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
}
