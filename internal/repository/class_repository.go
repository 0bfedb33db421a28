package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hobbyist/hobbyist-api/internal/model"
)

const classColumns = `id, instructor_id, title, description, category, price, duration_minutes,
	max_participants, current_participants, location_type, starts_at, booking_cutoff_hours,
	cancellation_hours, refund_percentage, status, created_at, updated_at`

// ClassRepository handles class data access.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func scanClass(row pgx.Row) (*model.Class, error) {
	c := &model.Class{}
	var cancelHours *int
	var refundPct *float64
	err := row.Scan(&c.ID, &c.InstructorID, &c.Title, &c.Description, &c.Category, &c.Price,
		&c.DurationMinutes, &c.MaxParticipants, &c.CurrentParticipants, &c.LocationType, &c.StartsAt,
		&c.BookingCutoffHours, &cancelHours, &refundPct, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if cancelHours != nil || refundPct != nil {
		policy := model.DefaultCancellationPolicy
		if cancelHours != nil {
			policy.HoursBeforeClass = *cancelHours
		}
		if refundPct != nil {
			policy.RefundPercentage = *refundPct
		}
		c.CancellationPolicy = &policy
	}
	return c, nil
}

func collectClasses(rows pgx.Rows) ([]model.Class, error) {
	defer rows.Close()

	classes := []model.Class{}
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// GetByID retrieves a class by its ID.
func (r *ClassRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	c, err := scanClass(r.pool.QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get class %s: %w", id, err)
	}
	return c, nil
}

// ListPublished retrieves upcoming published classes with pagination.
func (r *ClassRepository) ListPublished(ctx context.Context, limit, offset int) ([]model.Class, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM classes WHERE status = $1 AND starts_at > NOW()`, model.ClassPublished,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+classColumns+` FROM classes
		 WHERE status = $1 AND starts_at > NOW()
		 ORDER BY starts_at
		 LIMIT $2 OFFSET $3`, model.ClassPublished, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	classes, err := collectClasses(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan classes: %w", err)
	}
	return classes, total, nil
}

// ListActiveByInstructor retrieves the instructor's draft and published
// classes, leaving out excludeID.
func (r *ClassRepository) ListActiveByInstructor(ctx context.Context, instructorID, excludeID uuid.UUID) ([]model.Class, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+classColumns+` FROM classes
		 WHERE instructor_id = $1 AND status IN ($2, $3) AND id <> $4
		 ORDER BY starts_at`,
		instructorID, model.ClassDraft, model.ClassPublished, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list instructor classes: %w", err)
	}
	classes, err := collectClasses(rows)
	if err != nil {
		return nil, fmt.Errorf("scan instructor classes: %w", err)
	}
	return classes, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class) error {
	var cancelHours *int
	var refundPct *float64
	if c.CancellationPolicy != nil {
		cancelHours = &c.CancellationPolicy.HoursBeforeClass
		refundPct = &c.CancellationPolicy.RefundPercentage
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO classes (instructor_id, title, description, category, price, duration_minutes,
		     max_participants, location_type, starts_at, booking_cutoff_hours,
		     cancellation_hours, refund_percentage, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id, current_participants, created_at, updated_at`,
		c.InstructorID, c.Title, c.Description, c.Category, c.Price, c.DurationMinutes,
		c.MaxParticipants, c.LocationType, c.StartsAt, c.BookingCutoffHours,
		cancelHours, refundPct, c.Status,
	).Scan(&c.ID, &c.CurrentParticipants, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// TransitionStatus moves a class from one status to another.
func (r *ClassRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to model.ClassStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE classes SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return fmt.Errorf("update class status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrClassStateChanged
	}
	return nil
}

// Availability returns the capacity snapshot of a class.
func (r *ClassRepository) Availability(ctx context.Context, id uuid.UUID) (*model.ClassAvailability, error) {
	a := &model.ClassAvailability{ClassID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT max_participants, current_participants FROM classes WHERE id = $1`, id,
	).Scan(&a.MaxParticipants, &a.CurrentParticipants)
	if err != nil {
		return nil, fmt.Errorf("class availability %s: %w", id, notFound(err))
	}
	a.SpotsAvailable = a.MaxParticipants - a.CurrentParticipants
	return a, nil
}

