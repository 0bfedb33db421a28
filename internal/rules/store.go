package rules

import (
	"context"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/model"
)

// Store is the read-only data the rules need. Lookups of missing rows return
// an error wrapping apperror.ErrNotFound.
type Store interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	InstructorByID(ctx context.Context, id uuid.UUID) (*model.InstructorProfile, error)
	// InstructorClasses returns the instructor's draft and published classes,
	// leaving out excludeClassID.
	InstructorClasses(ctx context.Context, instructorID, excludeClassID uuid.UUID) ([]model.Class, error)
	ClassByID(ctx context.Context, id uuid.UUID) (*model.Class, error)
	// ActiveBooking returns the user's pending or confirmed booking for the class.
	ActiveBooking(ctx context.Context, userID, classID uuid.UUID) (*model.Booking, error)
	BookingByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
}
