package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/scholaris-edu/scholaris/internal/authz"
	jobmetrics "github.com/scholaris-edu/scholaris/internal/jobs"
)

// DecisionStore persists decision records. Implemented by the audit
// service.
type DecisionStore interface {
	Store(ctx context.Context, rec authz.Record) error
}

// NewRecordDecisionHandler builds the handler that drains the decision
// queue into the audit trail.
func NewRecordDecisionHandler(store DecisionStore, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		track := metrics.Track("record_decision")
		var rec authz.Record
		if err := json.Unmarshal(t.Payload(), &rec); err != nil {
			// A malformed payload never becomes valid on retry.
			return track.End(asynq.SkipRetry)
		}
		return track.End(store.Store(ctx, rec))
	}
}
