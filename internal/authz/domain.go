package authz

import (
	"errors"
	"fmt"
	"time"
)

// Scope is the breadth of a permission along the ownership hierarchy.
// The order is linear: OWN < DEPARTMENT < SCHOOL < ALL.
type Scope string

const (
	// ScopeNone marks a requirement without scope narrowing.
	ScopeNone Scope = ""
	// ScopeOwn restricts access to resources the actor owns.
	ScopeOwn Scope = "OWN"
	// ScopeDepartment restricts access to the actor's department.
	ScopeDepartment Scope = "DEPARTMENT"
	// ScopeSchool restricts access to the actor's school.
	ScopeSchool Scope = "SCHOOL"
	// ScopeAll grants unrestricted access.
	ScopeAll Scope = "ALL"
)

// Requirement is a single (resource, action, scope) tuple a request must hold.
// ResourceID is filled by the HTTP layer when the route targets a concrete
// resource; it is only consulted by the ownership fallback.
type Requirement struct {
	Resource   string
	Action     string
	Scope      Scope
	ResourceID *int64
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s:%s", r.Resource, r.Action)
}

// Decision is the resolved outcome for a single requirement.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Result aggregates decisions across all requirements of one request.
type Result struct {
	Allowed       bool
	DeniedReasons []string
}

// Outcome is the tri-state answer of a single permission source.
type Outcome int

const (
	// OutcomeNotApplicable means the source holds no matching grant; the
	// evaluator moves on to the next source.
	OutcomeNotApplicable Outcome = iota
	// OutcomeAllow is a definitive grant.
	OutcomeAllow
	// OutcomeDeny is a definitive refusal.
	OutcomeDeny
)

// SourceResult pairs a source outcome with its justification.
type SourceResult struct {
	Outcome Outcome
	Reason  string
}

// Override is a per-actor, time-bounded exception that outranks every other
// grant. A nil ValidUntil never expires.
type Override struct {
	IsGranted  bool
	ValidUntil *time.Time
}

// RoleGrant is a granted role permission as seen by the evaluator.
type RoleGrant struct {
	Scope Scope
}

// Record is the fire-and-forget audit event emitted per resolved requirement.
type Record struct {
	ActorID  int64     `json:"actor_id"`
	Resource string    `json:"resource"`
	Action   string    `json:"action"`
	Scope    Scope     `json:"scope"`
	Allowed  bool      `json:"allowed"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// ErrEvaluationUnavailable signals that the decision could not be computed
// because the backing store was unreachable. Callers should answer 5xx, not
// a misleading 403.
var ErrEvaluationUnavailable = errors.New("authz: evaluation unavailable")

// BypassReason is the reason attached to superadmin short-circuits.
const BypassReason = "bypass: hierarchy level 0"
