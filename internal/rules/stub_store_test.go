package rules

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

// stubStore is an in-memory Store for rule tests.
type stubStore struct {
	emails      map[string]bool
	instructors map[uuid.UUID]*model.InstructorProfile
	classes     map[uuid.UUID]*model.Class
	bookings    map[uuid.UUID]*model.Booking
	err         error
}

func newStubStore() *stubStore {
	return &stubStore{
		emails:      map[string]bool{},
		instructors: map[uuid.UUID]*model.InstructorProfile{},
		classes:     map[uuid.UUID]*model.Class{},
		bookings:    map[uuid.UUID]*model.Booking{},
	}
}

func (s *stubStore) EmailExists(_ context.Context, email string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.emails[email], nil
}

func (s *stubStore) InstructorByID(_ context.Context, id uuid.UUID) (*model.InstructorProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	inst, ok := s.instructors[id]
	if !ok {
		return nil, fmt.Errorf("instructor %s: %w", id, apperror.ErrNotFound)
	}
	return inst, nil
}

func (s *stubStore) InstructorClasses(_ context.Context, instructorID, exclude uuid.UUID) ([]model.Class, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Class
	for _, c := range s.classes {
		if c.InstructorID != instructorID || c.ID == exclude {
			continue
		}
		if c.Status == model.ClassDraft || c.Status == model.ClassPublished {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *stubStore) ClassByID(_ context.Context, id uuid.UUID) (*model.Class, error) {
	if s.err != nil {
		return nil, s.err
	}
	c, ok := s.classes[id]
	if !ok {
		return nil, fmt.Errorf("class %s: %w", id, apperror.ErrNotFound)
	}
	return c, nil
}

func (s *stubStore) ActiveBooking(_ context.Context, userID, classID uuid.UUID) (*model.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, b := range s.bookings {
		if b.UserID == userID && b.ClassID == classID && b.Active() {
			return b, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (s *stubStore) BookingByID(_ context.Context, id uuid.UUID) (*model.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, apperror.ErrNotFound)
	}
	return b, nil
}
