package model

import (
	"time"

	"github.com/google/uuid"
)

// PayoutAccountStatus mirrors the state of the instructor's payout account
// at the payment provider.
type PayoutAccountStatus string

const (
	PayoutPending    PayoutAccountStatus = "pending"
	PayoutActive     PayoutAccountStatus = "active"
	PayoutRestricted PayoutAccountStatus = "restricted"
)

// InstructorProfile is the instructor side of a user.
type InstructorProfile struct {
	ID                  uuid.UUID           `json:"id"`
	UserID              uuid.UUID           `json:"user_id"`
	Bio                 string              `json:"bio"`
	Specialties         []string            `json:"specialties"`
	Verified            bool                `json:"verified"`
	PayoutAccountID     *string             `json:"payout_account_id,omitempty"`
	PayoutAccountStatus PayoutAccountStatus `json:"payout_account_status"`
	// CommissionRate overrides the platform commission percentage when set.
	CommissionRate *float64  `json:"commission_rate,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BecomeInstructorRequest is the payload for opening an instructor profile.
type BecomeInstructorRequest struct {
	Bio         string   `json:"bio" binding:"max=2000"`
	Specialties []string `json:"specialties" binding:"omitempty,max=20,dive,min=1,max=50"`
}

// UpdatePayoutRequest links a payout account to the instructor profile.
type UpdatePayoutRequest struct {
	AccountID string              `json:"account_id" binding:"required,min=3,max=255"`
	Status    PayoutAccountStatus `json:"status" binding:"required,oneof=pending active restricted"`
}
