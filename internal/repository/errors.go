package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
)

// Domain outcomes wrap apperror.ErrConflict so the breaker and the retry
// policy treat them as answers, not dependency failures.
var (
	ErrEmailTaken          = conflict("user with this email already exists")
	ErrAlreadyInstructor   = conflict("user already has an instructor profile")
	ErrDuplicateBooking    = conflict("user already has an active booking for this class")
	ErrCapacityExceeded    = conflict("class has no spots left for this booking")
	ErrBookingStateChanged = conflict("booking is no longer in the expected state")
	ErrClassStateChanged   = conflict("class is no longer in the expected state")
)

func conflict(msg string) error {
	return fmt.Errorf("%s: %w", msg, apperror.ErrConflict)
}

// notFound maps pgx.ErrNoRows to apperror.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.ErrNotFound
	}
	return err
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
