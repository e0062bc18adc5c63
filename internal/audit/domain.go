package audit

import (
	"time"

	"github.com/scholaris-edu/scholaris/internal/authz"
)

// Entry is a persisted authorization decision.
type Entry struct {
	ID       int64       `json:"id"`
	ActorID  int64       `json:"actor_id"`
	Resource string      `json:"resource"`
	Action   string      `json:"action"`
	Scope    authz.Scope `json:"scope"`
	Allowed  bool        `json:"allowed"`
	Reason   string      `json:"reason"`
	At       time.Time   `json:"at"`
}

// Filter narrows a timeline query. Zero values mean "no constraint".
type Filter struct {
	ActorID  int64
	Resource string
	Allowed  *bool
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}
