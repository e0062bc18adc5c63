package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// credentialFinder is satisfied by Repository.
type credentialFinder interface {
	findCredentials(ctx context.Context, email string) (*credentials, error)
}

// Service handles the login and logout flows.
type Service struct {
	repo     credentialFinder
	sessions *SessionStore
}

// NewService builds a Service instance.
func NewService(repo credentialFinder, sessions *SessionStore) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Login verifies credentials and opens a session carrying the actor's
// affiliation snapshot.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	cred, err := s.repo.findCredentials(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	actor := shared.Actor{
		ID:           cred.StaffID,
		SchoolID:     cred.SchoolID,
		DepartmentID: cred.DepartmentID,
		PositionID:   cred.PositionID,
	}
	return s.sessions.Create(ctx, actor)
}

// Logout closes the session for the token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}
