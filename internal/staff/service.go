package staff

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for staff accounts.
type RepositoryPort interface {
	List(ctx context.Context, departmentID *int64) ([]Member, error)
	Get(ctx context.Context, id int64) (Member, error)
	Create(ctx context.Context, email, fullName, passwordHash string, aff Affiliation) (Member, error)
	UpdateProfile(ctx context.Context, id int64, email, fullName string) (Member, error)
	UpdateAffiliation(ctx context.Context, id int64, aff Affiliation) (Member, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Deactivate(ctx context.Context, id int64) error
}

// CacheInvalidator drops cached authorization decisions after writes.
type CacheInvalidator interface {
	Actor(ctx context.Context, actorID int64) error
	All(ctx context.Context) error
}

// Service handles staff business logic.
type Service struct {
	repo        RepositoryPort
	invalidator CacheInvalidator
	bcryptCost  int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, invalidator CacheInvalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator, bcryptCost: bcrypt.DefaultCost}
}

// List returns staff members, optionally filtered by department.
func (s *Service) List(ctx context.Context, departmentID *int64) ([]Member, error) {
	return s.repo.List(ctx, departmentID)
}

// Get fetches one staff member.
func (s *Service) Get(ctx context.Context, id int64) (Member, error) {
	return s.repo.Get(ctx, id)
}

// Create provisions a staff account. The password is hashed here; the
// plaintext never reaches the repository.
func (s *Service) Create(ctx context.Context, email, fullName, password string, aff Affiliation) (Member, error) {
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" {
		return Member{}, errors.New("staff: email and full name required")
	}
	if len(password) < 8 {
		return Member{}, errors.New("staff: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Member{}, err
	}
	return s.repo.Create(ctx, email, fullName, string(hash), aff)
}

// UpdateProfile changes name and email. Profile fields carry no
// authorization weight, so no cache invalidation happens here.
func (s *Service) UpdateProfile(ctx context.Context, id int64, email, fullName string) (Member, error) {
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" {
		return Member{}, errors.New("staff: email and full name required")
	}
	return s.repo.UpdateProfile(ctx, id, email, fullName)
}

// UpdateAffiliation moves a member in the hierarchy and synchronously
// drops their cached decisions, since ownership comparisons depend on
// the new placement.
func (s *Service) UpdateAffiliation(ctx context.Context, id int64, aff Affiliation) (Member, error) {
	member, err := s.repo.UpdateAffiliation(ctx, id, aff)
	if err != nil {
		return Member{}, err
	}
	if err := s.invalidator.Actor(ctx, id); err != nil {
		return Member{}, err
	}
	return member, nil
}

// ChangePassword replaces a member's password.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	if len(password) < 8 {
		return errors.New("staff: password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

// Deactivate soft-deletes an account and drops the member's cached
// decisions so nothing keeps allowing them.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.invalidator.Actor(ctx, id)
}
