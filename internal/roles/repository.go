package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles ordered by hierarchy level then name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	const query = `
		SELECT id, name, description, hierarchy_level, is_active, created_at, updated_at
		FROM roles
		ORDER BY hierarchy_level, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.HierarchyLevel,
			&role.IsActive, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	const query = `
		SELECT id, name, description, hierarchy_level, is_active, created_at, updated_at
		FROM roles WHERE id = $1`
	var role Role
	err := r.pool.QueryRow(ctx, query, id).Scan(&role.ID, &role.Name, &role.Description,
		&role.HierarchyLevel, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, description string, hierarchyLevel int) (Role, error) {
	const query = `
		INSERT INTO roles (name, description, hierarchy_level, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, name, description, hierarchy_level, is_active, created_at, updated_at`
	var role Role
	err := r.pool.QueryRow(ctx, query, name, description, hierarchyLevel).Scan(&role.ID, &role.Name,
		&role.Description, &role.HierarchyLevel, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Role{}, shared.ErrDuplicate
		}
		return Role{}, err
	}
	return role, nil
}

// UpdateRole updates an existing role definition.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string, hierarchyLevel int) (Role, error) {
	const query = `
		UPDATE roles
		SET name = $2, description = $3, hierarchy_level = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, description, hierarchy_level, is_active, created_at, updated_at`
	var role Role
	err := r.pool.QueryRow(ctx, query, id, name, description, hierarchyLevel).Scan(&role.ID, &role.Name,
		&role.Description, &role.HierarchyLevel, &role.IsActive, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// DeactivateRole soft-deletes a role.
func (r *Repository) DeactivateRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole activates a membership, creating it when absent.
func (r *Repository) AssignRole(ctx context.Context, staffID, roleID int64) error {
	const query = `
		INSERT INTO user_roles (user_id, role_id, is_active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (user_id, role_id) DO UPDATE SET is_active = TRUE`
	_, err := r.pool.Exec(ctx, query, staffID, roleID)
	return err
}

// RemoveRole deactivates a membership.
func (r *Repository) RemoveRole(ctx context.Context, staffID, roleID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_roles SET is_active = FALSE WHERE user_id = $1 AND role_id = $2`, staffID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListMembers returns the active memberships of a role.
func (r *Repository) ListMembers(ctx context.Context, roleID int64) ([]Membership, error) {
	const query = `
		SELECT user_id, role_id, is_active, created_at
		FROM user_roles
		WHERE role_id = $1 AND is_active
		ORDER BY user_id`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Membership
	for rows.Next() {
		var member Membership
		if err := rows.Scan(&member.StaffID, &member.RoleID, &member.IsActive, &member.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return members, nil
}
