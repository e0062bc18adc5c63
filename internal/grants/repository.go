package grants

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Repository provides PostgreSQL backed persistence for permission grants.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsurePermission upserts a permission definition.
func (r *Repository) EnsurePermission(ctx context.Context, resource, action, description string) (Permission, error) {
	const query = `
		INSERT INTO permissions (resource, action, description, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (resource, action) DO UPDATE SET description = EXCLUDED.description
		RETURNING id, resource, action, description, is_active`
	var perm Permission
	err := r.pool.QueryRow(ctx, query, resource, action, description).Scan(
		&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.IsActive)
	if err != nil {
		return Permission{}, err
	}
	return perm, nil
}

// ListPermissions returns all permission definitions.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	const query = `SELECT id, resource, action, description, is_active FROM permissions ORDER BY resource, action`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Resource, &perm.Action, &perm.Description, &perm.IsActive); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// SetPermissionActive flips a permission definition on or off.
func (r *Repository) SetPermissionActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE permissions SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CreateOverride inserts a new override for a staff member.
func (r *Repository) CreateOverride(ctx context.Context, staffID, permissionID int64, isGranted bool, validUntil *time.Time) (OverrideGrant, error) {
	const query = `
		INSERT INTO user_overrides (user_id, permission_id, is_granted, valid_until)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, permission_id, is_granted, valid_until, created_at`
	var override OverrideGrant
	err := r.pool.QueryRow(ctx, query, staffID, permissionID, isGranted, validUntil).Scan(
		&override.ID, &override.StaffID, &override.PermissionID,
		&override.IsGranted, &override.ValidUntil, &override.CreatedAt)
	if err != nil {
		return OverrideGrant{}, err
	}
	return override, nil
}

// DeleteOverride removes an override and reports the affected staff id.
func (r *Repository) DeleteOverride(ctx context.Context, id int64) (int64, error) {
	var staffID int64
	err := r.pool.QueryRow(ctx, `DELETE FROM user_overrides WHERE id = $1 RETURNING user_id`, id).Scan(&staffID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return staffID, nil
}

// ListExpiringOverrides returns overrides expiring within the window, for
// the expiry-warning job.
func (r *Repository) ListExpiringOverrides(ctx context.Context, within time.Duration) ([]OverrideGrant, error) {
	const query = `
		SELECT uo.id, uo.user_id, uo.permission_id, p.resource, p.action,
		       uo.is_granted, uo.valid_until, uo.created_at
		FROM user_overrides uo
		JOIN permissions p ON p.id = uo.permission_id
		WHERE uo.valid_until IS NOT NULL
		  AND uo.valid_until > NOW()
		  AND uo.valid_until <= NOW() + $1::interval
		ORDER BY uo.valid_until`
	rows, err := r.pool.Query(ctx, query, within.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []OverrideGrant
	for rows.Next() {
		var o OverrideGrant
		if err := rows.Scan(&o.ID, &o.StaffID, &o.PermissionID, &o.Resource, &o.Action,
			&o.IsGranted, &o.ValidUntil, &o.CreatedAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overrides, nil
}

// SetDirectGrant upserts a direct user permission.
func (r *Repository) SetDirectGrant(ctx context.Context, staffID, permissionID int64, isGranted bool) error {
	const query = `
		INSERT INTO user_permissions (user_id, permission_id, is_granted, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, permission_id) DO UPDATE SET is_granted = EXCLUDED.is_granted, is_active = TRUE`
	_, err := r.pool.Exec(ctx, query, staffID, permissionID, isGranted)
	return err
}

// RevokeDirectGrant deactivates a direct user permission.
func (r *Repository) RevokeDirectGrant(ctx context.Context, staffID, permissionID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_permissions SET is_active = FALSE WHERE user_id = $1 AND permission_id = $2`,
		staffID, permissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AttachRolePermission upserts a role permission at a scope.
func (r *Repository) AttachRolePermission(ctx context.Context, roleID, permissionID int64, scope authz.Scope, isGranted bool) error {
	const query = `
		INSERT INTO role_permissions (role_id, permission_id, scope, is_granted, is_active)
		VALUES ($1, $2, NULLIF($3, ''), $4, TRUE)
		ON CONFLICT (role_id, permission_id) DO UPDATE
		SET scope = NULLIF($3, ''), is_granted = EXCLUDED.is_granted, is_active = TRUE`
	_, err := r.pool.Exec(ctx, query, roleID, permissionID, string(scope), isGranted)
	return err
}

// DetachRolePermission deactivates a role permission link.
func (r *Repository) DetachRolePermission(ctx context.Context, roleID, permissionID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE role_permissions SET is_active = FALSE WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ActiveRoleMembers returns the staff ids currently holding a role, for
// scoped invalidation after role-permission link changes.
func (r *Repository) ActiveRoleMembers(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM user_roles WHERE role_id = $1 AND is_active`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
