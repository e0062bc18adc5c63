package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/scholaris-edu/scholaris/internal/authz"
)

// RepositoryPort defines data access methods for decision records.
type RepositoryPort interface {
	Insert(ctx context.Context, rec authz.Record) error
	Timeline(ctx context.Context, f Filter) ([]Entry, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service handles the decision audit trail.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Store persists one decision record. Called from the background worker,
// never from the request path.
func (s *Service) Store(ctx context.Context, rec authz.Record) error {
	if rec.At.IsZero() {
		rec.At = time.Now().UTC()
	}
	return s.repo.Insert(ctx, rec)
}

// Timeline returns recent decisions matching the filter.
func (s *Service) Timeline(ctx context.Context, f Filter) ([]Entry, error) {
	return s.repo.Timeline(ctx, f)
}

// Purge removes records older than the retention window.
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("purged decision records",
			slog.Int64("removed", removed),
			slog.Time("cutoff", cutoff))
	}
	return removed, nil
}
