package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// source is one permission source in the fixed precedence order. A source
// answers NotApplicable to pass the question on, or a definitive Allow/Deny
// that stops evaluation.
type source interface {
	Name() string
	Check(ctx context.Context, actor shared.Actor, req Requirement) (SourceResult, error)
}

// evaluationSources returns the sources in precedence order: user override,
// direct user permission, role permission, position permission.
func evaluationSources(store Store, now func() time.Time) []source {
	if now == nil {
		now = time.Now
	}
	return []source{
		overrideSource{store: store, now: now},
		directSource{store: store},
		roleSource{store: store},
		positionSource{},
	}
}

// overrideSource resolves per-actor overrides. An unexpired override is
// always definitive: it can deny what a role would allow.
type overrideSource struct {
	store Store
	now   func() time.Time
}

func (overrideSource) Name() string { return "override" }

func (s overrideSource) Check(ctx context.Context, actor shared.Actor, req Requirement) (SourceResult, error) {
	override, err := s.store.FindOverride(ctx, actor.ID, req.Resource, req.Action)
	if err != nil {
		return SourceResult{}, err
	}
	if override == nil {
		return SourceResult{Outcome: OutcomeNotApplicable}, nil
	}
	if override.ValidUntil != nil && !override.ValidUntil.After(s.now()) {
		return SourceResult{Outcome: OutcomeNotApplicable}, nil
	}
	if override.IsGranted {
		return SourceResult{
			Outcome: OutcomeAllow,
			Reason:  fmt.Sprintf("Allowed by user override for %s:%s", req.Resource, req.Action),
		}, nil
	}
	return SourceResult{
		Outcome: OutcomeDeny,
		Reason:  fmt.Sprintf("Denied by user override for %s:%s", req.Resource, req.Action),
	}, nil
}

// directSource resolves direct user permissions. Direct grants are not
// scope-filtered: being assigned to the individual is taken as already
// scoped. Changing this would silently alter authorization outcomes.
type directSource struct {
	store Store
}

func (directSource) Name() string { return "direct" }

func (s directSource) Check(ctx context.Context, actor shared.Actor, req Requirement) (SourceResult, error) {
	granted, err := s.store.FindDirectGrant(ctx, actor.ID, req.Resource, req.Action)
	if err != nil {
		return SourceResult{}, err
	}
	if !granted {
		return SourceResult{Outcome: OutcomeNotApplicable}, nil
	}
	return SourceResult{Outcome: OutcomeAllow, Reason: "Allowed by direct permission"}, nil
}

// roleSource resolves permissions attached to the actor's active roles.
// A grant qualifies when it carries no scope or a scope at least as broad
// as the requested one.
type roleSource struct {
	store Store
}

func (roleSource) Name() string { return "role" }

func (s roleSource) Check(ctx context.Context, actor shared.Actor, req Requirement) (SourceResult, error) {
	grants, err := s.store.FindRoleGrants(ctx, actor.ID, req.Resource, req.Action)
	if err != nil {
		return SourceResult{}, err
	}
	for _, grant := range grants {
		if grant.Scope == ScopeNone || ScopeSufficient(grant.Scope, req.Scope) {
			return SourceResult{Outcome: OutcomeAllow, Reason: "Allowed by role permission"}, nil
		}
	}
	return SourceResult{Outcome: OutcomeNotApplicable}, nil
}

// positionSource is reserved for position-derived permissions. The data
// model anticipates them, but no inheritance rules exist yet, so the source
// is never applicable.
type positionSource struct{}

func (positionSource) Name() string { return "position" }

func (positionSource) Check(ctx context.Context, actor shared.Actor, req Requirement) (SourceResult, error) {
	return SourceResult{Outcome: OutcomeNotApplicable}, nil
}
