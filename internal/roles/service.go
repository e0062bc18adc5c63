package roles

import (
	"context"
	"errors"
	"strings"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string, hierarchyLevel int) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, hierarchyLevel int) (Role, error)
	DeactivateRole(ctx context.Context, id int64) error
	AssignRole(ctx context.Context, staffID, roleID int64) error
	RemoveRole(ctx context.Context, staffID, roleID int64) error
	ListMembers(ctx context.Context, roleID int64) ([]Membership, error)
}

// CacheInvalidator drops cached authorization decisions after writes. The
// calls are synchronous: a stale decision must never be served after the
// writer has been answered.
type CacheInvalidator interface {
	Actor(ctx context.Context, actorID int64) error
	All(ctx context.Context) error
}

// Service handles role business logic.
type Service struct {
	repo        RepositoryPort
	invalidator CacheInvalidator
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator CacheInvalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role. A fresh role has no grants, so nothing
// cached can reference it yet and no invalidation is needed.
func (s *Service) CreateRole(ctx context.Context, name, description string, hierarchyLevel int) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	if hierarchyLevel < 0 {
		return Role{}, errors.New("roles: hierarchy level must be >= 0")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description), hierarchyLevel)
}

// UpdateRole changes a role definition. The blast radius of a definition
// change is unbounded, so every cached decision is dropped.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string, hierarchyLevel int) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	if hierarchyLevel < 0 {
		return Role{}, errors.New("roles: hierarchy level must be >= 0")
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description), hierarchyLevel)
	if err != nil {
		return Role{}, err
	}
	if err := s.invalidator.All(ctx); err != nil {
		return Role{}, err
	}
	return role, nil
}

// DeactivateRole soft-deletes a role and drops all cached decisions.
func (s *Service) DeactivateRole(ctx context.Context, id int64) error {
	if err := s.repo.DeactivateRole(ctx, id); err != nil {
		return err
	}
	return s.invalidator.All(ctx)
}

// AssignRole adds a staff member to a role and invalidates that member's
// cached decisions, including the bypass flag.
func (s *Service) AssignRole(ctx context.Context, staffID, roleID int64) error {
	if err := s.repo.AssignRole(ctx, staffID, roleID); err != nil {
		return err
	}
	return s.invalidator.Actor(ctx, staffID)
}

// RemoveRole removes a staff member from a role and invalidates their
// cached decisions.
func (s *Service) RemoveRole(ctx context.Context, staffID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, staffID, roleID); err != nil {
		return err
	}
	return s.invalidator.Actor(ctx, staffID)
}

// ListMembers returns the active memberships of a role.
func (s *Service) ListMembers(ctx context.Context, roleID int64) ([]Membership, error) {
	return s.repo.ListMembers(ctx, roleID)
}
