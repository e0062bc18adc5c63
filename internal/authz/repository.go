package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store exposes the read-only grant lookups the evaluator needs. The engine
// never writes through this interface.
type Store interface {
	// FindOverride returns the newest override for the tuple, nil when none
	// exists. Expiry is checked by the caller, not here.
	FindOverride(ctx context.Context, actorID int64, resource, action string) (*Override, error)
	// FindDirectGrant reports whether an active, granted direct user
	// permission matches the tuple.
	FindDirectGrant(ctx context.Context, actorID int64, resource, action string) (bool, error)
	// FindRoleGrants returns the scopes of all granted role permissions for
	// the tuple across the actor's active roles.
	FindRoleGrants(ctx context.Context, actorID int64, resource, action string) ([]RoleGrant, error)
	// HasHierarchyLevelZeroRole reports whether the actor holds any active
	// role at hierarchy level 0.
	HasHierarchyLevelZeroRole(ctx context.Context, actorID int64) (bool, error)
}

// Repository provides PostgreSQL backed grant lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindOverride returns the newest override for (actor, resource, action).
func (r *Repository) FindOverride(ctx context.Context, actorID int64, resource, action string) (*Override, error) {
	const query = `
		SELECT uo.is_granted, uo.valid_until
		FROM user_overrides uo
		JOIN permissions p ON p.id = uo.permission_id
		WHERE uo.user_id = $1 AND p.resource = $2 AND p.action = $3 AND p.is_active
		ORDER BY uo.created_at DESC
		LIMIT 1`
	var override Override
	err := r.pool.QueryRow(ctx, query, actorID, resource, action).Scan(&override.IsGranted, &override.ValidUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

// FindDirectGrant reports whether an active direct grant matches the tuple.
func (r *Repository) FindDirectGrant(ctx context.Context, actorID int64, resource, action string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM user_permissions up
			JOIN permissions p ON p.id = up.permission_id
			WHERE up.user_id = $1 AND p.resource = $2 AND p.action = $3
			  AND up.is_granted AND up.is_active AND p.is_active
		)`
	var granted bool
	if err := r.pool.QueryRow(ctx, query, actorID, resource, action).Scan(&granted); err != nil {
		return false, err
	}
	return granted, nil
}

// FindRoleGrants collects the scopes of matching grants across active roles.
func (r *Repository) FindRoleGrants(ctx context.Context, actorID int64, resource, action string) ([]RoleGrant, error) {
	const query = `
		SELECT COALESCE(rp.scope, '')
		FROM role_permissions rp
		JOIN user_roles ur ON ur.role_id = rp.role_id
		JOIN roles ro ON ro.id = rp.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1 AND p.resource = $2 AND p.action = $3
		  AND ur.is_active AND ro.is_active AND rp.is_granted AND rp.is_active AND p.is_active`
	rows, err := r.pool.Query(ctx, query, actorID, resource, action)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []RoleGrant
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, err
		}
		grants = append(grants, RoleGrant{Scope: Scope(scope)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// HasHierarchyLevelZeroRole reports whether the actor is a superadmin.
func (r *Repository) HasHierarchyLevelZeroRole(ctx context.Context, actorID int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles ro ON ro.id = ur.role_id
			WHERE ur.user_id = $1 AND ur.is_active AND ro.is_active AND ro.hierarchy_level = 0
		)`
	var found bool
	if err := r.pool.QueryRow(ctx, query, actorID).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
