package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// ResourceOwnership resolves how a resource type relates to the ownership
// hierarchy. Resource types without a registered implementation fail closed.
type ResourceOwnership interface {
	// IsOwn reports whether the resource belongs to the actor personally.
	IsOwn(ctx context.Context, actor shared.Actor, resourceID int64) (bool, error)
	// DepartmentID resolves the resource's department, nil when it has none.
	DepartmentID(ctx context.Context, resourceID int64) (*int64, error)
	// SchoolID resolves the resource's school, directly or via its
	// department. Nil when it has none.
	SchoolID(ctx context.Context, resourceID int64) (*int64, error)
}

// OwnershipRegistry maps resource type names to their ownership resolvers.
// It is assembled once at startup and treated as static configuration.
type OwnershipRegistry map[string]ResourceOwnership

// DefaultOwnerships wires the resolvers for the built-in resource types.
func DefaultOwnerships(pool *pgxpool.Pool) OwnershipRegistry {
	return OwnershipRegistry{
		"staff":      staffOwnership{pool: pool},
		"department": departmentOwnership{pool: pool},
		"school":     schoolOwnership{pool: pool},
		"position":   positionOwnership{pool: pool},
	}
}

// checkOwnership is the scope fallback: it runs only when no permission
// source decided, and resolves by comparing the resource's placement with
// the actor's. Every unresolvable path denies.
func checkOwnership(ctx context.Context, ownerships OwnershipRegistry, actor shared.Actor, req Requirement) (Decision, error) {
	if req.Scope == ScopeAll {
		// Ownership narrows access to what is "mine"; it can never confer
		// unrestricted breadth. ALL must come from a grant.
		return deniedFor(req), nil
	}
	if req.ResourceID == nil {
		return Decision{Allowed: false, Reason: "no resource id for scope check"}, nil
	}
	ownership, ok := ownerships[req.Resource]
	if !ok {
		return deniedFor(req), nil
	}
	switch req.Scope {
	case ScopeOwn:
		own, err := ownership.IsOwn(ctx, actor, *req.ResourceID)
		if err != nil {
			return Decision{}, err
		}
		if own {
			return allowedByOwnership(req), nil
		}
	case ScopeDepartment:
		if actor.DepartmentID == nil {
			return deniedFor(req), nil
		}
		dept, err := ownership.DepartmentID(ctx, *req.ResourceID)
		if err != nil {
			return Decision{}, err
		}
		if dept != nil && *dept == *actor.DepartmentID {
			return allowedByOwnership(req), nil
		}
	case ScopeSchool:
		if actor.SchoolID == nil {
			return deniedFor(req), nil
		}
		school, err := ownership.SchoolID(ctx, *req.ResourceID)
		if err != nil {
			return Decision{}, err
		}
		if school != nil && *school == *actor.SchoolID {
			return allowedByOwnership(req), nil
		}
	}
	return deniedFor(req), nil
}

func allowedByOwnership(req Requirement) Decision {
	return Decision{Allowed: true, Reason: fmt.Sprintf("Allowed by ownership (%s)", req.Scope)}
}

func deniedFor(req Requirement) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf("no permission for %s:%s", req.Resource, req.Action)}
}

type staffOwnership struct {
	pool *pgxpool.Pool
}

func (o staffOwnership) IsOwn(ctx context.Context, actor shared.Actor, resourceID int64) (bool, error) {
	return resourceID == actor.ID, nil
}

func (o staffOwnership) DepartmentID(ctx context.Context, resourceID int64) (*int64, error) {
	return scanNullableID(ctx, o.pool, `SELECT department_id FROM staff WHERE id = $1`, resourceID)
}

func (o staffOwnership) SchoolID(ctx context.Context, resourceID int64) (*int64, error) {
	return scanNullableID(ctx, o.pool, `SELECT school_id FROM staff WHERE id = $1`, resourceID)
}

type departmentOwnership struct {
	pool *pgxpool.Pool
}

func (o departmentOwnership) IsOwn(ctx context.Context, actor shared.Actor, resourceID int64) (bool, error) {
	return actor.DepartmentID != nil && *actor.DepartmentID == resourceID, nil
}

func (o departmentOwnership) DepartmentID(ctx context.Context, resourceID int64) (*int64, error) {
	id := resourceID
	return &id, nil
}

func (o departmentOwnership) SchoolID(ctx context.Context, resourceID int64) (*int64, error) {
	return scanNullableID(ctx, o.pool, `SELECT school_id FROM departments WHERE id = $1`, resourceID)
}

type schoolOwnership struct {
	pool *pgxpool.Pool
}

func (o schoolOwnership) IsOwn(ctx context.Context, actor shared.Actor, resourceID int64) (bool, error) {
	return actor.SchoolID != nil && *actor.SchoolID == resourceID, nil
}

func (o schoolOwnership) DepartmentID(ctx context.Context, resourceID int64) (*int64, error) {
	// Schools sit above departments; there is nothing to resolve.
	return nil, nil
}

func (o schoolOwnership) SchoolID(ctx context.Context, resourceID int64) (*int64, error) {
	id := resourceID
	return &id, nil
}

type positionOwnership struct {
	pool *pgxpool.Pool
}

func (o positionOwnership) IsOwn(ctx context.Context, actor shared.Actor, resourceID int64) (bool, error) {
	return actor.PositionID != nil && *actor.PositionID == resourceID, nil
}

func (o positionOwnership) DepartmentID(ctx context.Context, resourceID int64) (*int64, error) {
	return scanNullableID(ctx, o.pool, `SELECT department_id FROM positions WHERE id = $1`, resourceID)
}

func (o positionOwnership) SchoolID(ctx context.Context, resourceID int64) (*int64, error) {
	return scanNullableID(ctx, o.pool, `
		SELECT d.school_id
		FROM positions p
		JOIN departments d ON d.id = p.department_id
		WHERE p.id = $1`, resourceID)
}

func scanNullableID(ctx context.Context, pool *pgxpool.Pool, query string, resourceID int64) (*int64, error) {
	var id *int64
	err := pool.QueryRow(ctx, query, resourceID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return id, nil
}
