package staff

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

const memberColumns = `id, email, full_name, school_id, department_id, position_id, is_active, created_at, updated_at, last_login_at`

// Repository provides PostgreSQL backed persistence for staff accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.Email, &m.FullName, &m.SchoolID, &m.DepartmentID, &m.PositionID,
		&m.IsActive, &m.CreatedAt, &m.UpdatedAt, &m.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Member{}, shared.ErrDuplicate
		}
		return Member{}, err
	}
	return m, nil
}

// List returns staff members, optionally filtered by department.
func (r *Repository) List(ctx context.Context, departmentID *int64) ([]Member, error) {
	const query = `
		SELECT ` + memberColumns + `
		FROM staff
		WHERE $1::bigint IS NULL OR department_id = $1
		ORDER BY full_name, id`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}

// Get fetches one staff member.
func (r *Repository) Get(ctx context.Context, id int64) (Member, error) {
	const query = `SELECT ` + memberColumns + ` FROM staff WHERE id = $1`
	return scanMember(r.pool.QueryRow(ctx, query, id))
}

// Create inserts a staff account with a pre-hashed password.
func (r *Repository) Create(ctx context.Context, email, fullName, passwordHash string, aff Affiliation) (Member, error) {
	const query = `
		INSERT INTO staff (email, full_name, password_hash, school_id, department_id, position_id, is_active)
		VALUES (lower($1), $2, $3, $4, $5, $6, TRUE)
		RETURNING ` + memberColumns
	return scanMember(r.pool.QueryRow(ctx, query, email, fullName, passwordHash,
		aff.SchoolID, aff.DepartmentID, aff.PositionID))
}

// UpdateProfile updates name and email.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, email, fullName string) (Member, error) {
	const query = `
		UPDATE staff SET email = lower($2), full_name = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + memberColumns
	return scanMember(r.pool.QueryRow(ctx, query, id, email, fullName))
}

// UpdateAffiliation moves a member within the org hierarchy.
func (r *Repository) UpdateAffiliation(ctx context.Context, id int64, aff Affiliation) (Member, error) {
	const query = `
		UPDATE staff SET school_id = $2, department_id = $3, position_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + memberColumns
	return scanMember(r.pool.QueryRow(ctx, query, id, aff.SchoolID, aff.DepartmentID, aff.PositionID))
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staff SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a staff account.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE staff SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
