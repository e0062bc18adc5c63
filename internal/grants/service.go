package grants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scholaris-edu/scholaris/internal/authz"
)

// RepositoryPort defines data access methods for grants.
type RepositoryPort interface {
	EnsurePermission(ctx context.Context, resource, action, description string) (Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	SetPermissionActive(ctx context.Context, id int64, active bool) error
	CreateOverride(ctx context.Context, staffID, permissionID int64, isGranted bool, validUntil *time.Time) (OverrideGrant, error)
	DeleteOverride(ctx context.Context, id int64) (int64, error)
	ListExpiringOverrides(ctx context.Context, within time.Duration) ([]OverrideGrant, error)
	SetDirectGrant(ctx context.Context, staffID, permissionID int64, isGranted bool) error
	RevokeDirectGrant(ctx context.Context, staffID, permissionID int64) error
	AttachRolePermission(ctx context.Context, roleID, permissionID int64, scope authz.Scope, isGranted bool) error
	DetachRolePermission(ctx context.Context, roleID, permissionID int64) error
	ActiveRoleMembers(ctx context.Context, roleID int64) ([]int64, error)
}

// CacheInvalidator drops cached authorization decisions after grant writes.
type CacheInvalidator interface {
	Actor(ctx context.Context, actorID int64) error
	All(ctx context.Context) error
}

// Service orchestrates grant administration. Every mutation invalidates the
// affected decisions synchronously, before the writer is answered.
type Service struct {
	repo        RepositoryPort
	invalidator CacheInvalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator CacheInvalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// EnsurePermission upserts a permission definition.
func (s *Service) EnsurePermission(ctx context.Context, resource, action, description string) (Permission, error) {
	if resource == "" || action == "" {
		return Permission{}, errors.New("grants: resource and action required")
	}
	return s.repo.EnsurePermission(ctx, resource, action, description)
}

// ListPermissions returns all permission definitions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// SetPermissionActive toggles a permission definition. A definition change
// can affect any actor, so every cached decision is dropped.
func (s *Service) SetPermissionActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetPermissionActive(ctx, id, active); err != nil {
		return err
	}
	return s.invalidator.All(ctx)
}

// CreateOverride sets a time-bounded override for a staff member.
func (s *Service) CreateOverride(ctx context.Context, staffID, permissionID int64, isGranted bool, validUntil *time.Time) (OverrideGrant, error) {
	if validUntil != nil && !validUntil.After(time.Now()) {
		return OverrideGrant{}, errors.New("grants: valid_until must be in the future")
	}
	override, err := s.repo.CreateOverride(ctx, staffID, permissionID, isGranted, validUntil)
	if err != nil {
		return OverrideGrant{}, err
	}
	if err := s.invalidator.Actor(ctx, staffID); err != nil {
		return OverrideGrant{}, err
	}
	return override, nil
}

// DeleteOverride removes an override.
func (s *Service) DeleteOverride(ctx context.Context, id int64) error {
	staffID, err := s.repo.DeleteOverride(ctx, id)
	if err != nil {
		return err
	}
	return s.invalidator.Actor(ctx, staffID)
}

// ListExpiringOverrides returns overrides expiring within the window.
func (s *Service) ListExpiringOverrides(ctx context.Context, within time.Duration) ([]OverrideGrant, error) {
	return s.repo.ListExpiringOverrides(ctx, within)
}

// SetDirectGrant upserts a direct user permission.
func (s *Service) SetDirectGrant(ctx context.Context, staffID, permissionID int64, isGranted bool) error {
	if err := s.repo.SetDirectGrant(ctx, staffID, permissionID, isGranted); err != nil {
		return err
	}
	return s.invalidator.Actor(ctx, staffID)
}

// RevokeDirectGrant deactivates a direct user permission.
func (s *Service) RevokeDirectGrant(ctx context.Context, staffID, permissionID int64) error {
	if err := s.repo.RevokeDirectGrant(ctx, staffID, permissionID); err != nil {
		return err
	}
	return s.invalidator.Actor(ctx, staffID)
}

// AttachRolePermission links a permission to a role at a scope and
// invalidates every member currently holding the role.
func (s *Service) AttachRolePermission(ctx context.Context, roleID, permissionID int64, scope authz.Scope, isGranted bool) error {
	if scope != authz.ScopeNone && !authz.ValidScope(scope) {
		return fmt.Errorf("grants: unknown scope %q", scope)
	}
	if err := s.repo.AttachRolePermission(ctx, roleID, permissionID, scope, isGranted); err != nil {
		return err
	}
	return s.invalidateRoleMembers(ctx, roleID)
}

// DetachRolePermission removes a role permission link and invalidates every
// member currently holding the role.
func (s *Service) DetachRolePermission(ctx context.Context, roleID, permissionID int64) error {
	if err := s.repo.DetachRolePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	return s.invalidateRoleMembers(ctx, roleID)
}

func (s *Service) invalidateRoleMembers(ctx context.Context, roleID int64) error {
	members, err := s.repo.ActiveRoleMembers(ctx, roleID)
	if err != nil {
		// Membership could not be resolved; fall back to dropping everything
		// rather than leaving any member with a stale decision.
		return s.invalidator.All(ctx)
	}
	for _, staffID := range members {
		if err := s.invalidator.Actor(ctx, staffID); err != nil {
			return err
		}
	}
	return nil
}
