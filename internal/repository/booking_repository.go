package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

const bookingColumns = `id, user_id, class_id, attendees, amount, commission_amount, instructor_payout,
	status, payment_status, payment_method_id, refund_amount, cancellation_reason, notes,
	confirmed_at, cancelled_at, created_at, updated_at`

// BookingRepository handles booking data access.
type BookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository creates a new BookingRepository.
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	b := &model.Booking{}
	err := row.Scan(&b.ID, &b.UserID, &b.ClassID, &b.Attendees, &b.Amount, &b.CommissionAmount,
		&b.InstructorPayout, &b.Status, &b.PaymentStatus, &b.PaymentMethodID, &b.RefundAmount,
		&b.CancellationReason, &b.Notes, &b.ConfirmedAt, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// GetByID retrieves a booking by its ID.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

// GetActive retrieves the user's pending or confirmed booking for a class.
func (r *BookingRepository) GetActive(ctx context.Context, userID, classID uuid.UUID) (*model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE user_id = $1 AND class_id = $2 AND status IN ($3, $4)
		 LIMIT 1`, userID, classID, model.BookingPending, model.BookingConfirmed))
	if err != nil {
		return nil, fmt.Errorf("get active booking: %w", err)
	}
	return b, nil
}

// ListByUser retrieves all bookings of a user, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// Seats is the number of class spots a booking holds.
func Seats(attendees []model.Attendee) int {
	return max(len(attendees), 1)
}

// Create reserves the seats on the class and inserts the booking in one
// transaction. The class must be published with enough spots left.
func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) error {
	if b.Attendees == nil {
		b.Attendees = []model.Attendee{}
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE classes
			 SET current_participants = current_participants + $1, updated_at = NOW()
			 WHERE id = $2 AND status = $3 AND current_participants + $1 <= max_participants`,
			Seats(b.Attendees), b.ClassID, model.ClassPublished)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrCapacityExceeded
		}

		return tx.QueryRow(ctx,
			`INSERT INTO bookings (user_id, class_id, attendees, amount, commission_amount,
			     instructor_payout, status, payment_status, payment_method_id, notes)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id, created_at, updated_at`,
			b.UserID, b.ClassID, b.Attendees, b.Amount, b.CommissionAmount, b.InstructorPayout,
			b.Status, b.PaymentStatus, b.PaymentMethodID, b.Notes,
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	})
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		return err
	case isUniqueViolation(err):
		return ErrDuplicateBooking
	case err != nil:
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// Confirm marks a pending booking as confirmed and paid.
func (r *BookingRepository) Confirm(ctx context.Context, id uuid.UUID, paymentMethodID *string) (*model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx,
		`UPDATE bookings
		 SET status = $1, payment_status = $2, payment_method_id = COALESCE($3, payment_method_id),
		     confirmed_at = NOW(), updated_at = NOW()
		 WHERE id = $4 AND status = $5
		 RETURNING `+bookingColumns,
		model.BookingConfirmed, model.PaymentPaid, paymentMethodID, id, model.BookingPending))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, ErrBookingStateChanged
	}
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	return b, nil
}

// Cancel cancels a live booking, records the refund and releases its seats
// in one transaction. A paid booking with a positive refund becomes refunded.
func (r *BookingRepository) Cancel(ctx context.Context, id uuid.UUID, refund int64, reason *string) (*model.Booking, error) {
	var b *model.Booking
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		b, err = scanBooking(tx.QueryRow(ctx,
			`UPDATE bookings
			 SET status = $1,
			     payment_status = CASE WHEN payment_status = $2 AND $3::bigint > 0 THEN $4 ELSE payment_status END,
			     refund_amount = $3, cancellation_reason = $5, cancelled_at = NOW(), updated_at = NOW()
			 WHERE id = $6 AND status IN ($7, $8)
			 RETURNING `+bookingColumns,
			model.BookingCancelled, model.PaymentPaid, refund, model.PaymentRefunded, reason,
			id, model.BookingPending, model.BookingConfirmed))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE classes
			 SET current_participants = GREATEST(current_participants - $1, 0), updated_at = NOW()
			 WHERE id = $2`, Seats(b.Attendees), b.ClassID)
		return err
	})
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, ErrBookingStateChanged
	}
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	return b, nil
}
