package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Repository reads staff credentials for authentication.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) findCredentials(ctx context.Context, email string) (*credentials, error) {
	const query = `
		SELECT id, password_hash, school_id, department_id, position_id
		FROM staff
		WHERE lower(email) = lower($1) AND is_active`
	var cred credentials
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&cred.StaffID, &cred.PasswordHash, &cred.SchoolID, &cred.DepartmentID, &cred.PositionID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	return &cred, nil
}
