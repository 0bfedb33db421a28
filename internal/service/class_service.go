package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/repository"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
	"github.com/hobbyist/hobbyist-api/internal/rules"
)

// ClassService handles class business logic.
type ClassService struct {
	classes     *repository.ClassRepository
	instructors *InstructorService
	validator   *rules.Validator
	guard       *resilience.Guard
}

// NewClassService creates a new ClassService.
func NewClassService(classes *repository.ClassRepository, instructors *InstructorService, validator *rules.Validator, guard *resilience.Guard) *ClassService {
	return &ClassService{classes: classes, instructors: instructors, validator: validator, guard: guard}
}

// GetByID retrieves a class by its ID.
func (s *ClassService) GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	class, err := resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.Class, error) {
		return s.classes.GetByID(ctx, id)
	})
	if apperror.IsNotFound(err) {
		return nil, apperror.NotFound("class", id.String())
	}
	return class, err
}

// ListPublished retrieves upcoming published classes.
func (s *ClassService) ListPublished(ctx context.Context, page, perPage int) ([]model.Class, int, error) {
	var total int
	classes, err := resilience.Call(ctx, s.guard, func(ctx context.Context) ([]model.Class, error) {
		list, n, err := s.classes.ListPublished(ctx, perPage, (page-1)*perPage)
		total = n
		return list, err
	})
	return classes, total, err
}

// Availability returns the capacity snapshot of a class.
func (s *ClassService) Availability(ctx context.Context, id uuid.UUID) (*model.ClassAvailability, error) {
	a, err := resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.ClassAvailability, error) {
		return s.classes.Availability(ctx, id)
	})
	if apperror.IsNotFound(err) {
		return nil, apperror.NotFound("class", id.String())
	}
	return a, err
}

// Create runs the class_creation rules and stores a draft class owned by the
// caller's instructor profile.
func (s *ClassService) Create(ctx context.Context, userID uuid.UUID, req *model.CreateClassRequest) (*model.Class, []rules.Warning, error) {
	instructor, err := s.instructors.ForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	in := rules.ClassInput{
		Title:           req.Title,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		MaxParticipants: req.MaxParticipants,
		LocationType:    req.LocationType,
		StartsAt:        req.StartsAt,
	}
	rc := rules.RuleContext{UserID: userID, InstructorID: instructor.ID}
	warnings, err := check(s.validator.Validate(ctx, rules.CategoryClassCreation, in, rc), rules.CategoryClassCreation)
	if err != nil {
		return nil, nil, err
	}

	class := &model.Class{
		InstructorID:       instructor.ID,
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		Price:              req.Price,
		DurationMinutes:    req.DurationMinutes,
		MaxParticipants:    req.MaxParticipants,
		LocationType:       req.LocationType,
		StartsAt:           req.StartsAt.UTC(),
		BookingCutoffHours: req.BookingCutoffHours,
		Status:             model.ClassDraft,
	}
	if req.CancellationHours != nil || req.RefundPercentage != nil {
		policy := model.DefaultCancellationPolicy
		if req.CancellationHours != nil {
			policy.HoursBeforeClass = *req.CancellationHours
		}
		if req.RefundPercentage != nil {
			policy.RefundPercentage = *req.RefundPercentage
		}
		class.CancellationPolicy = &policy
	}

	if err := s.guard.Once(ctx, func(ctx context.Context) error { return s.classes.Create(ctx, class) }); err != nil {
		return nil, nil, err
	}
	return class, warnings, nil
}

// Publish opens a draft class owned by the caller for booking.
func (s *ClassService) Publish(ctx context.Context, userID, classID uuid.UUID) (*model.Class, error) {
	instructor, err := s.instructors.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	class, err := s.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class.InstructorID != instructor.ID {
		return nil, apperror.Authorization("You can only publish your own classes", "class", "publish")
	}

	err = s.guard.Run(ctx, func(ctx context.Context) error {
		return s.classes.TransitionStatus(ctx, classID, model.ClassDraft, model.ClassPublished)
	})
	if errors.Is(err, repository.ErrClassStateChanged) {
		return nil, apperror.Conflict("Only draft classes can be published", "class")
	}
	if err != nil {
		return nil, err
	}
	class.Status = model.ClassPublished
	return class, nil
}
