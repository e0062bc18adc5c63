package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scholaris-edu/scholaris/internal/grants"
	jobmetrics "github.com/scholaris-edu/scholaris/internal/jobs"
	"github.com/scholaris-edu/scholaris/internal/staff"
)

const (
	// TaskTypeAuditRetention prunes decision records past the retention window.
	TaskTypeAuditRetention = "audit:retention"
	// TaskTypeOverrideExpiry warns holders of overrides that are about to lapse.
	TaskTypeOverrideExpiry = "grants:override_expiry"

	// overrideWarningWindow is how far ahead the expiry scan looks.
	overrideWarningWindow = 72 * time.Hour
)

// DecisionPurger removes old decision records.
type DecisionPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// NewAuditRetentionHandler builds the nightly retention handler.
func NewAuditRetentionHandler(purger DecisionPurger, retention time.Duration, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		track := metrics.Track("audit_retention")
		_, err := purger.Purge(ctx, retention)
		return track.End(err)
	}
}

// OverrideLister reports overrides close to expiry.
type OverrideLister interface {
	ListExpiringOverrides(ctx context.Context, within time.Duration) ([]grants.OverrideGrant, error)
}

// StaffDirectory resolves staff members for notification addressing.
type StaffDirectory interface {
	Get(ctx context.Context, id int64) (staff.Member, error)
}

// EmailEnqueuer submits mail tasks; satisfied by Client.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// NewOverrideExpiryHandler builds the handler that emails staff whose
// permission overrides lapse within the warning window. A missing or
// deactivated member is skipped, not an error.
func NewOverrideExpiryHandler(lister OverrideLister, directory StaffDirectory, mail EmailEnqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		track := metrics.Track("override_expiry")
		overrides, err := lister.ListExpiringOverrides(ctx, overrideWarningWindow)
		if err != nil {
			return track.End(err)
		}
		for _, ov := range overrides {
			if ov.ValidUntil == nil {
				continue
			}
			member, err := directory.Get(ctx, ov.StaffID)
			if err != nil || !member.IsActive {
				logger.Warn("override expiry: skipping staff member",
					slog.Int64("staff_id", ov.StaffID), slog.Any("error", err))
				continue
			}
			subject := fmt.Sprintf("Permission override for %s:%s expires soon", ov.Resource, ov.Action)
			body := fmt.Sprintf("Hello %s,\n\nYour temporary permission override for %s:%s expires at %s.\nContact an administrator if you still need this access.\n",
				member.FullName, ov.Resource, ov.Action, ov.ValidUntil.UTC().Format(time.RFC3339))
			if _, err := mail.EnqueueSendEmail(ctx, SendEmailPayload{To: member.Email, Subject: subject, Body: body}); err != nil {
				logger.Error("override expiry: enqueue mail", slog.Any("error", err))
			}
		}
		return track.End(nil)
	}
}
