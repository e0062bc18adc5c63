package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the org hierarchy.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

// ListSchools returns all schools.
func (r *Repository) ListSchools(ctx context.Context) ([]School, error) {
	const query = `SELECT id, code, name, is_active, created_at, updated_at FROM schools ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var schools []School
	for rows.Next() {
		var s School
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		schools = append(schools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return schools, nil
}

// GetSchool fetches one school.
func (r *Repository) GetSchool(ctx context.Context, id int64) (School, error) {
	const query = `SELECT id, code, name, is_active, created_at, updated_at FROM schools WHERE id = $1`
	var s School
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Code, &s.Name, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return School{}, shared.ErrNotFound
		}
		return School{}, err
	}
	return s, nil
}

// CreateSchool inserts a school.
func (r *Repository) CreateSchool(ctx context.Context, code, name string) (School, error) {
	const query = `
		INSERT INTO schools (code, name, is_active) VALUES ($1, $2, TRUE)
		RETURNING id, code, name, is_active, created_at, updated_at`
	var s School
	err := r.pool.QueryRow(ctx, query, code, name).Scan(&s.ID, &s.Code, &s.Name, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return School{}, mapWriteError(err)
	}
	return s, nil
}

// UpdateSchool updates a school.
func (r *Repository) UpdateSchool(ctx context.Context, id int64, code, name string) (School, error) {
	const query = `
		UPDATE schools SET code = $2, name = $3, updated_at = NOW() WHERE id = $1
		RETURNING id, code, name, is_active, created_at, updated_at`
	var s School
	err := r.pool.QueryRow(ctx, query, id, code, name).Scan(&s.ID, &s.Code, &s.Name, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return School{}, shared.ErrNotFound
		}
		return School{}, mapWriteError(err)
	}
	return s, nil
}

// DeactivateSchool soft-deletes a school.
func (r *Repository) DeactivateSchool(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE schools SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListDepartments returns departments, optionally filtered by school.
func (r *Repository) ListDepartments(ctx context.Context, schoolID *int64) ([]Department, error) {
	const query = `
		SELECT id, school_id, code, name, is_active, created_at, updated_at
		FROM departments
		WHERE $1::bigint IS NULL OR school_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, query, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.SchoolID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return departments, nil
}

// GetDepartment fetches one department.
func (r *Repository) GetDepartment(ctx context.Context, id int64) (Department, error) {
	const query = `
		SELECT id, school_id, code, name, is_active, created_at, updated_at
		FROM departments WHERE id = $1`
	var d Department
	err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.SchoolID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return d, nil
}

// CreateDepartment inserts a department under a school.
func (r *Repository) CreateDepartment(ctx context.Context, schoolID int64, code, name string) (Department, error) {
	const query = `
		INSERT INTO departments (school_id, code, name, is_active) VALUES ($1, $2, $3, TRUE)
		RETURNING id, school_id, code, name, is_active, created_at, updated_at`
	var d Department
	err := r.pool.QueryRow(ctx, query, schoolID, code, name).Scan(
		&d.ID, &d.SchoolID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Department{}, mapWriteError(err)
	}
	return d, nil
}

// UpdateDepartment updates a department.
func (r *Repository) UpdateDepartment(ctx context.Context, id int64, code, name string) (Department, error) {
	const query = `
		UPDATE departments SET code = $2, name = $3, updated_at = NOW() WHERE id = $1
		RETURNING id, school_id, code, name, is_active, created_at, updated_at`
	var d Department
	err := r.pool.QueryRow(ctx, query, id, code, name).Scan(
		&d.ID, &d.SchoolID, &d.Code, &d.Name, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, mapWriteError(err)
	}
	return d, nil
}

// DeactivateDepartment soft-deletes a department.
func (r *Repository) DeactivateDepartment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListPositions returns positions, optionally filtered by department.
func (r *Repository) ListPositions(ctx context.Context, departmentID *int64) ([]Position, error) {
	const query = `
		SELECT id, department_id, code, name, is_active, created_at, updated_at
		FROM positions
		WHERE $1::bigint IS NULL OR department_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var positions []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.DepartmentID, &p.Code, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}

// GetPosition fetches one position.
func (r *Repository) GetPosition(ctx context.Context, id int64) (Position, error) {
	const query = `
		SELECT id, department_id, code, name, is_active, created_at, updated_at
		FROM positions WHERE id = $1`
	var p Position
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.DepartmentID, &p.Code, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Position{}, shared.ErrNotFound
		}
		return Position{}, err
	}
	return p, nil
}

// CreatePosition inserts a position under a department.
func (r *Repository) CreatePosition(ctx context.Context, departmentID int64, code, name string) (Position, error) {
	const query = `
		INSERT INTO positions (department_id, code, name, is_active) VALUES ($1, $2, $3, TRUE)
		RETURNING id, department_id, code, name, is_active, created_at, updated_at`
	var p Position
	err := r.pool.QueryRow(ctx, query, departmentID, code, name).Scan(
		&p.ID, &p.DepartmentID, &p.Code, &p.Name, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Position{}, mapWriteError(err)
	}
	return p, nil
}

// DeactivatePosition soft-deletes a position.
func (r *Repository) DeactivatePosition(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE positions SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
