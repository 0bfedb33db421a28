package model

import (
	"time"

	"github.com/google/uuid"
)

// LocationType is where a class takes place.
type LocationType string

const (
	LocationOnline   LocationType = "online"
	LocationInPerson LocationType = "in_person"
	LocationHybrid   LocationType = "hybrid"
)

// ClassStatus is the lifecycle state of a class.
type ClassStatus string

const (
	ClassDraft     ClassStatus = "draft"
	ClassPublished ClassStatus = "published"
	ClassCancelled ClassStatus = "cancelled"
	ClassCompleted ClassStatus = "completed"
)

// CancellationPolicy grants RefundPercentage when a booking is cancelled at
// least HoursBeforeClass hours ahead; later cancellations are prorated.
type CancellationPolicy struct {
	HoursBeforeClass int     `json:"hours_before_class"`
	RefundPercentage float64 `json:"refund_percentage"`
}

// DefaultCancellationPolicy applies to classes without an explicit policy.
var DefaultCancellationPolicy = CancellationPolicy{HoursBeforeClass: 24, RefundPercentage: 100}

// Class is a bookable session run by an instructor. Price is in cents.
type Class struct {
	ID                  uuid.UUID           `json:"id"`
	InstructorID        uuid.UUID           `json:"instructor_id"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Category            string              `json:"category"`
	Price               int64               `json:"price"`
	DurationMinutes     int                 `json:"duration_minutes"`
	MaxParticipants     int                 `json:"max_participants"`
	CurrentParticipants int                 `json:"current_participants"`
	LocationType        LocationType        `json:"location_type"`
	StartsAt            time.Time           `json:"starts_at"`
	BookingCutoffHours  *int                `json:"booking_cutoff_hours,omitempty"`
	CancellationPolicy  *CancellationPolicy `json:"cancellation_policy,omitempty"`
	Status              ClassStatus         `json:"status"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// SpotsAvailable returns the number of places left.
func (c *Class) SpotsAvailable() int {
	return c.MaxParticipants - c.CurrentParticipants
}

// EndsAt returns the end of the class.
func (c *Class) EndsAt() time.Time {
	return c.StartsAt.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// Policy returns the class cancellation policy or the default one.
func (c *Class) Policy() CancellationPolicy {
	if c.CancellationPolicy == nil {
		return DefaultCancellationPolicy
	}
	return *c.CancellationPolicy
}

// CreateClassRequest is the payload for creating a draft class. Pricing and
// capacity bounds are enforced by the class creation rules.
type CreateClassRequest struct {
	Title              string       `json:"title" binding:"required,min=3,max=200"`
	Description        string       `json:"description" binding:"max=5000"`
	Category           string       `json:"category" binding:"required,max=50"`
	Price              int64        `json:"price" binding:"gte=0"`
	DurationMinutes    int          `json:"duration_minutes" binding:"required,min=1,max=1440"`
	MaxParticipants    int          `json:"max_participants" binding:"gte=0"`
	LocationType       LocationType `json:"location_type" binding:"required,oneof=online in_person hybrid"`
	StartsAt           time.Time    `json:"starts_at" binding:"required"`
	BookingCutoffHours *int         `json:"booking_cutoff_hours" binding:"omitempty,min=0,max=168"`
	CancellationHours  *int         `json:"cancellation_hours" binding:"omitempty,min=0,max=720"`
	RefundPercentage   *float64     `json:"refund_percentage" binding:"omitempty,min=0,max=100"`
}

// ClassAvailability is pushed to websocket subscribers when capacity changes.
type ClassAvailability struct {
	ClassID             uuid.UUID `json:"class_id"`
	MaxParticipants     int       `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	SpotsAvailable      int       `json:"spots_available"`
}
