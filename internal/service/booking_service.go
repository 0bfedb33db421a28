package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/metrics"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/repository"
	"github.com/hobbyist/hobbyist-api/internal/resilience"
	"github.com/hobbyist/hobbyist-api/internal/rules"
)

// BookingLockTTL bounds how long a booking attempt holds the per-user lock.
const BookingLockTTL = 30 * time.Second

// releaseLock deletes the lock only while it still carries the holder's token,
// so an attempt that outlived the TTL cannot drop a newer holder's lock.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Commission splits amount into the platform commission and the instructor
// payout at percentage.
func Commission(amount int64, percentage float64) (commission, payout int64) {
	commission = int64(math.Round(float64(amount) * percentage / 100))
	return commission, amount - commission
}

// BookingService handles the booking lifecycle.
type BookingService struct {
	cfg         *config.Config
	bookings    *repository.BookingRepository
	classes     *repository.ClassRepository
	instructors *repository.InstructorRepository
	rdb         *redis.Client
	validator   *rules.Validator
	guard       *resilience.Guard
	log         zerolog.Logger
	now         func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	cfg *config.Config,
	bookings *repository.BookingRepository,
	classes *repository.ClassRepository,
	instructors *repository.InstructorRepository,
	rdb *redis.Client,
	validator *rules.Validator,
	guard *resilience.Guard,
	log zerolog.Logger,
) *BookingService {
	return &BookingService{
		cfg:         cfg,
		bookings:    bookings,
		classes:     classes,
		instructors: instructors,
		rdb:         rdb,
		validator:   validator,
		guard:       guard,
		log:         log.With().Str("component", "booking_service").Logger(),
		now:         time.Now,
	}
}

// Create books the class for the caller after the booking_creation rules
// pass. The booking starts pending and unpaid.
func (s *BookingService) Create(ctx context.Context, userID uuid.UUID, req *model.CreateBookingRequest) (*model.Booking, []rules.Warning, error) {
	unlock, err := s.lock(ctx, userID, req.ClassID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	in := rules.BookingInput{ClassID: req.ClassID, Attendees: req.Attendees, PaymentMethodID: req.PaymentMethodID}
	rc := rules.RuleContext{UserID: userID, ClassID: req.ClassID}
	warnings, err := check(s.validator.Validate(ctx, rules.CategoryBookingCreation, in, rc), rules.CategoryBookingCreation)
	if err != nil {
		return nil, nil, err
	}

	class, err := s.class(ctx, req.ClassID)
	if err != nil {
		return nil, nil, err
	}
	rate, err := s.commissionRate(ctx, class.InstructorID)
	if err != nil {
		return nil, nil, err
	}

	amount := class.Price * int64(repository.Seats(req.Attendees))
	commission, payout := Commission(amount, rate)
	booking := &model.Booking{
		UserID:           userID,
		ClassID:          class.ID,
		Attendees:        req.Attendees,
		Amount:           amount,
		CommissionAmount: commission,
		InstructorPayout: payout,
		Status:           model.BookingPending,
		PaymentStatus:    model.PaymentPending,
		PaymentMethodID:  optional(req.PaymentMethodID),
		Notes:            optional(req.Notes),
	}

	err = s.guard.Once(ctx, func(ctx context.Context) error { return s.bookings.Create(ctx, booking) })
	switch {
	case errors.Is(err, repository.ErrCapacityExceeded):
		return nil, nil, apperror.Conflict("Not enough spots left in this class", "class")
	case errors.Is(err, repository.ErrDuplicateBooking):
		return nil, nil, apperror.Conflict("You already have an active booking for this class", "booking")
	case err != nil:
		return nil, nil, err
	}

	metrics.BookingsTotal.WithLabelValues("created").Inc()
	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("class_id", class.ID.String()).
		Int64("amount", amount).
		Msg("Booking created")
	s.emit(ctx, model.NotificationBookingCreated, booking)
	s.publishAvailability(ctx, class.ID)
	return booking, warnings, nil
}

// Confirm records the captured payment on a pending booking of the caller.
func (s *BookingService) Confirm(ctx context.Context, userID, bookingID uuid.UUID, req *model.ConfirmBookingRequest) (*model.Booking, []rules.Warning, error) {
	booking, err := s.owned(ctx, userID, model.RoleStudent, bookingID)
	if err != nil {
		return nil, nil, err
	}
	class, err := s.class(ctx, booking.ClassID)
	if err != nil {
		return nil, nil, err
	}

	in := rules.PaymentInput{BookingID: bookingID, Amount: req.Amount}
	rc := rules.RuleContext{UserID: userID, InstructorID: class.InstructorID, ClassID: class.ID}
	warnings, err := check(s.validator.Validate(ctx, rules.CategoryPaymentProcessing, in, rc), rules.CategoryPaymentProcessing)
	if err != nil {
		return nil, nil, err
	}

	var confirmed *model.Booking
	err = s.guard.Once(ctx, func(ctx context.Context) error {
		var err error
		confirmed, err = s.bookings.Confirm(ctx, bookingID, optional(req.PaymentMethodID))
		return err
	})
	if errors.Is(err, repository.ErrBookingStateChanged) {
		return nil, nil, apperror.Conflict("Only pending bookings can be confirmed", "booking")
	}
	if err != nil {
		return nil, nil, err
	}

	metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
	s.emit(ctx, model.NotificationBookingConfirmed, confirmed)
	return confirmed, warnings, nil
}

// Cancel cancels a live booking. The refund follows the class cancellation
// policy and is only granted on paid bookings. Admins may cancel any booking.
func (s *BookingService) Cancel(ctx context.Context, userID uuid.UUID, role model.Role, bookingID uuid.UUID, req *model.CancelBookingRequest) (*model.Booking, []rules.Warning, error) {
	booking, err := s.owned(ctx, userID, role, bookingID)
	if err != nil {
		return nil, nil, err
	}
	class, err := s.class(ctx, booking.ClassID)
	if err != nil {
		return nil, nil, err
	}

	in := rules.CancellationInput{BookingID: bookingID, RefundAmount: req.RefundAmount, Reason: req.Reason}
	rc := rules.RuleContext{UserID: userID, ClassID: class.ID}
	warnings, err := check(s.validator.Validate(ctx, rules.CategoryBookingCancellation, in, rc), rules.CategoryBookingCancellation)
	if err != nil {
		return nil, nil, err
	}

	refund := refundFor(booking, class, s.now())

	var cancelled *model.Booking
	err = s.guard.Once(ctx, func(ctx context.Context) error {
		var err error
		cancelled, err = s.bookings.Cancel(ctx, bookingID, refund, optional(req.Reason))
		return err
	})
	if errors.Is(err, repository.ErrBookingStateChanged) {
		return nil, nil, apperror.Conflict("Booking is already cancelled or completed", "booking")
	}
	if err != nil {
		return nil, nil, err
	}

	metrics.BookingsTotal.WithLabelValues("cancelled").Inc()
	s.log.Info().
		Str("booking_id", bookingID.String()).
		Int64("refund", refund).
		Msg("Booking cancelled")
	s.emit(ctx, model.NotificationBookingCancelled, cancelled)
	s.publishAvailability(ctx, class.ID)
	return cancelled, warnings, nil
}

// Get returns a booking visible to the caller.
func (s *BookingService) Get(ctx context.Context, userID uuid.UUID, role model.Role, bookingID uuid.UUID) (*model.Booking, error) {
	return s.owned(ctx, userID, role, bookingID)
}

// ListMine returns the caller's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, userID uuid.UUID) ([]model.Booking, error) {
	return resilience.Call(ctx, s.guard, func(ctx context.Context) ([]model.Booking, error) {
		return s.bookings.ListByUser(ctx, userID)
	})
}

func (s *BookingService) owned(ctx context.Context, userID uuid.UUID, role model.Role, bookingID uuid.UUID) (*model.Booking, error) {
	booking, err := resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.Booking, error) {
		return s.bookings.GetByID(ctx, bookingID)
	})
	if apperror.IsNotFound(err) {
		return nil, apperror.NotFound("booking", bookingID.String())
	}
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID && role != model.RoleAdmin {
		return nil, apperror.Authorization("You do not have access to this booking", "booking", "manage")
	}
	return booking, nil
}

func (s *BookingService) class(ctx context.Context, classID uuid.UUID) (*model.Class, error) {
	class, err := resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.Class, error) {
		return s.classes.GetByID(ctx, classID)
	})
	if apperror.IsNotFound(err) {
		return nil, apperror.NotFound("class", classID.String())
	}
	return class, err
}

func (s *BookingService) commissionRate(ctx context.Context, instructorID uuid.UUID) (float64, error) {
	instructor, err := resilience.Call(ctx, s.guard, func(ctx context.Context) (*model.InstructorProfile, error) {
		return s.instructors.GetByID(ctx, instructorID)
	})
	if err != nil {
		return 0, err
	}
	return commissionPercentage(instructor, s.cfg.CommissionPercentage), nil
}

// commissionPercentage is the instructor's own rate when set, else the
// platform rate.
func commissionPercentage(instructor *model.InstructorProfile, platform float64) float64 {
	if instructor.CommissionRate != nil {
		return *instructor.CommissionRate
	}
	return platform
}

// refundFor applies the class cancellation policy to a paid booking. Unpaid
// bookings have nothing to refund.
func refundFor(booking *model.Booking, class *model.Class, now time.Time) int64 {
	if booking.PaymentStatus != model.PaymentPaid {
		return 0
	}
	refund, _ := rules.CancellationRefund(booking, class, now)
	return refund
}

// lock takes the per-user booking lock for a class. Redis being unavailable
// does not block bookings; the active-booking unique index still holds.
func (s *BookingService) lock(ctx context.Context, userID, classID uuid.UUID) (func(), error) {
	key := config.CacheKey.BookingLockKey(userID, classID)
	token := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, key, token, BookingLockTTL).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Booking lock unavailable, continuing without it")
		return func() {}, nil
	}
	if !ok {
		return nil, apperror.Conflict("A booking for this class is already in progress", "booking")
	}
	return func() {
		if err := releaseLock.Run(context.WithoutCancel(ctx), s.rdb, []string{key}, token).Err(); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to release booking lock")
		}
	}, nil
}

// emit queues a booking event for the notification worker.
func (s *BookingService) emit(ctx context.Context, kind model.NotificationKind, b *model.Booking) {
	event := model.BookingEvent{
		Kind:         kind,
		BookingID:    b.ID,
		UserID:       b.UserID,
		ClassID:      b.ClassID,
		Amount:       b.Amount,
		RefundAmount: b.RefundAmount,
		OccurredAt:   s.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode booking event")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.BookingEventsQueue, data).Err(); err != nil {
		s.log.Error().Err(err).Str("booking_id", b.ID.String()).Str("kind", string(kind)).Msg("Failed to queue booking event")
	}
}

// publishAvailability pushes the current capacity of a class to websocket
// subscribers.
func (s *BookingService) publishAvailability(ctx context.Context, classID uuid.UUID) {
	a, err := s.classes.Availability(ctx, classID)
	if err != nil {
		s.log.Warn().Err(err).Str("class_id", classID.String()).Msg("Failed to load class availability")
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.ClassAvailabilityChannel(classID), data).Err(); err != nil {
		s.log.Warn().Err(err).Str("class_id", classID.String()).Msg("Failed to publish class availability")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
