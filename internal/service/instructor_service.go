package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/repository"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
)

// InstructorService manages instructor profiles.
type InstructorService struct {
	instructors *repository.InstructorRepository
	guard       *resilience.Guard
	log         zerolog.Logger
}

// NewInstructorService creates a new InstructorService.
func NewInstructorService(instructors *repository.InstructorRepository, guard *resilience.Guard, log zerolog.Logger) *InstructorService {
	return &InstructorService{
		instructors: instructors,
		guard:       guard,
		log:         log.With().Str("component", "instructor_service").Logger(),
	}
}

// Become opens an instructor profile for userID.
func (s *InstructorService) Become(ctx context.Context, userID uuid.UUID, req *model.BecomeInstructorRequest) (*model.InstructorProfile, error) {
	profile := &model.InstructorProfile{UserID: userID, Bio: req.Bio, Specialties: req.Specialties}
	err := s.guard.Once(ctx, func(ctx context.Context) error { return s.instructors.Create(ctx, profile) })
	if errors.Is(err, repository.ErrAlreadyInstructor) {
		return nil, apperror.Conflict("You already have an instructor profile", "instructor")
	}
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID.String()).Str("instructor_id", profile.ID.String()).Msg("Instructor profile created")
	return profile, nil
}

// ForUser returns the instructor profile of userID.
func (s *InstructorService) ForUser(ctx context.Context, userID uuid.UUID) (*model.InstructorProfile, error) {
	profile, err := resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.InstructorProfile, error) {
		return s.instructors.GetByUserID(ctx, userID)
	})
	if apperror.IsNotFound(err) {
		return nil, apperror.Authorization("An instructor profile is required", "instructor", "read")
	}
	return profile, err
}

// UpdatePayout links a payout account to the caller's profile.
func (s *InstructorService) UpdatePayout(ctx context.Context, userID uuid.UUID, req *model.UpdatePayoutRequest) (*model.InstructorProfile, error) {
	profile, err := s.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	err = s.guard.Run(ctx, func(ctx context.Context) error {
		return s.instructors.UpdatePayout(ctx, profile.ID, req.AccountID, req.Status)
	})
	if err != nil {
		return nil, err
	}
	profile.PayoutAccountID = &req.AccountID
	profile.PayoutAccountStatus = req.Status
	return profile, nil
}

// Verify marks an instructor as verified.
func (s *InstructorService) Verify(ctx context.Context, instructorID uuid.UUID) error {
	err := s.guard.Run(ctx, func(ctx context.Context) error {
		return s.instructors.SetVerified(ctx, instructorID, true)
	})
	if apperror.IsNotFound(err) {
		return apperror.NotFound("instructor", instructorID.String())
	}
	if err == nil {
		s.log.Info().Str("instructor_id", instructorID.String()).Msg("Instructor verified")
	}
	return err
}
