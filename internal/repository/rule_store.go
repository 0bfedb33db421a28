package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
)

// RuleStore serves the business rules from Postgres. Every query runs through
// the database guard so rule evaluation backs off while Postgres is failing.
type RuleStore struct {
	users       *UserRepository
	instructors *InstructorRepository
	classes     *ClassRepository
	bookings    *BookingRepository
	guard       *resilience.Guard
}

// NewRuleStore creates a new RuleStore.
func NewRuleStore(users *UserRepository, instructors *InstructorRepository, classes *ClassRepository,
	bookings *BookingRepository, guard *resilience.Guard) *RuleStore {
	return &RuleStore{users: users, instructors: instructors, classes: classes, bookings: bookings, guard: guard}
}

func (s *RuleStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return resilience.Call(ctx, s.guard, func(ctx context.Context) (bool, error) {
		return s.users.EmailExists(ctx, email)
	})
}

func (s *RuleStore) InstructorByID(ctx context.Context, id uuid.UUID) (*model.InstructorProfile, error) {
	return resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.InstructorProfile, error) {
		return s.instructors.GetByID(ctx, id)
	})
}

func (s *RuleStore) InstructorClasses(ctx context.Context, instructorID, excludeClassID uuid.UUID) ([]model.Class, error) {
	return resilience.Call(ctx, s.guard, func(ctx context.Context) ([]model.Class, error) {
		return s.classes.ListActiveByInstructor(ctx, instructorID, excludeClassID)
	})
}

func (s *RuleStore) ClassByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	return resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.Class, error) {
		return s.classes.GetByID(ctx, id)
	})
}

func (s *RuleStore) ActiveBooking(ctx context.Context, userID, classID uuid.UUID) (*model.Booking, error) {
	return resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.Booking, error) {
		return s.bookings.GetActive(ctx, userID, classID)
	})
}

func (s *RuleStore) BookingByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	return resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.Booking, error) {
		return s.bookings.GetByID(ctx, id)
	})
}
