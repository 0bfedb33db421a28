package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/model"
)

const instructorColumns = `id, user_id, bio, specialties, verified, payout_account_id, payout_account_status,
	commission_rate, created_at, updated_at`

// InstructorRepository handles instructor profile data access.
type InstructorRepository struct {
	pool *pgxpool.Pool
}

// NewInstructorRepository creates a new InstructorRepository.
func NewInstructorRepository(pool *pgxpool.Pool) *InstructorRepository {
	return &InstructorRepository{pool: pool}
}

func scanInstructor(row pgx.Row) (*model.InstructorProfile, error) {
	p := &model.InstructorProfile{}
	err := row.Scan(&p.ID, &p.UserID, &p.Bio, &p.Specialties, &p.Verified, &p.PayoutAccountID,
		&p.PayoutAccountStatus, &p.CommissionRate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByID retrieves an instructor profile by ID.
func (r *InstructorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.InstructorProfile, error) {
	p, err := scanInstructor(r.pool.QueryRow(ctx,
		`SELECT `+instructorColumns+` FROM instructor_profiles WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get instructor %s: %w", id, err)
	}
	return p, nil
}

// GetByUserID retrieves the instructor profile owned by a user.
func (r *InstructorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.InstructorProfile, error) {
	p, err := scanInstructor(r.pool.QueryRow(ctx,
		`SELECT `+instructorColumns+` FROM instructor_profiles WHERE user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("get instructor of user %s: %w", userID, err)
	}
	return p, nil
}

// Create inserts the profile and promotes its user to the instructor role in
// one transaction.
func (r *InstructorRepository) Create(ctx context.Context, p *model.InstructorProfile) error {
	if p.Specialties == nil {
		p.Specialties = []string{}
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO instructor_profiles (user_id, bio, specialties)
			 VALUES ($1, $2, $3)
			 RETURNING id, verified, payout_account_status, created_at, updated_at`,
			p.UserID, p.Bio, p.Specialties,
		).Scan(&p.ID, &p.Verified, &p.PayoutAccountStatus, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE user_profiles SET role = $1, updated_at = NOW() WHERE id = $2 AND role = $3`,
			model.RoleInstructor, p.UserID, model.RoleStudent)
		return err
	})
	if isUniqueViolation(err) {
		return ErrAlreadyInstructor
	}
	if err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}

// SetVerified marks an instructor as verified or not.
func (r *InstructorRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE instructor_profiles SET verified = $1, updated_at = NOW() WHERE id = $2`, verified, id)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("verify instructor %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

// UpdatePayout stores the payout account and its status.
func (r *InstructorRepository) UpdatePayout(ctx context.Context, id uuid.UUID, accountID string, status model.PayoutAccountStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE instructor_profiles
		 SET payout_account_id = $1, payout_account_status = $2, updated_at = NOW()
		 WHERE id = $3`, accountID, status, id)
	if err != nil {
		return fmt.Errorf("update payout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update payout of instructor %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}
