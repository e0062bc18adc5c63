package authz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Recorder receives resolved decisions for the audit trail. Implementations
// must never block: the authorization path's latency is not allowed to
// depend on audit-sink health.
type Recorder interface {
	Record(rec Record)
}

// DecisionObserver receives evaluation outcomes for metrics.
type DecisionObserver interface {
	ObserveDecision(outcome string)
}

// Evaluator is the policy decision point. It combines the bypass check, the
// decision cache, the ordered permission sources and the ownership fallback
// into one ALLOW/DENY answer per requirement.
type Evaluator struct {
	bypass     *BypassChecker
	cache      *DecisionCache
	sources    []source
	ownerships OwnershipRegistry
	recorder   Recorder
	observer   DecisionObserver
	logger     *slog.Logger
	now        func() time.Time
}

// EvaluatorConfig groups the evaluator's collaborators.
type EvaluatorConfig struct {
	Store      Store
	Cache      *DecisionCache
	Bypass     *BypassChecker
	Ownerships OwnershipRegistry
	Recorder   Recorder
	Observer   DecisionObserver
	Logger     *slog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewEvaluator constructs an Evaluator with the fixed source precedence
// override > direct > role > position.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		bypass:     cfg.Bypass,
		cache:      cfg.Cache,
		sources:    evaluationSources(cfg.Store, now),
		ownerships: cfg.Ownerships,
		recorder:   cfg.Recorder,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Evaluate resolves every requirement for the actor and allows the request
// only when all of them allow. Requirements are independent reads, so they
// run concurrently; the aggregate is order-independent.
func (e *Evaluator) Evaluate(ctx context.Context, actor shared.Actor, reqs []Requirement) (Result, error) {
	if len(reqs) == 0 {
		return Result{Allowed: true}, nil
	}
	decisions := make([]Decision, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			decision, err := e.evaluateOne(gctx, actor, req)
			if err != nil {
				return err
			}
			decisions[i] = decision
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	result := Result{Allowed: true}
	for _, decision := range decisions {
		if !decision.Allowed {
			result.Allowed = false
			result.DeniedReasons = append(result.DeniedReasons, decision.Reason)
		}
	}
	return result, nil
}

func (e *Evaluator) evaluateOne(ctx context.Context, actor shared.Actor, req Requirement) (Decision, error) {
	if req.Scope != ScopeNone && !ValidScope(req.Scope) {
		// A requirement with a scope outside the known order is a wiring
		// mistake; it must never pass the ScopeSufficient comparison, where
		// an unknown value weighs 0 and any grant would satisfy it.
		decision := Decision{Allowed: false, Reason: fmt.Sprintf("unknown scope %q for %s:%s", req.Scope, req.Resource, req.Action)}
		e.observe("deny")
		e.record(actor, req, decision)
		return decision, nil
	}

	bypass, err := e.bypass.IsBypass(ctx, actor.ID)
	if err != nil {
		return Decision{}, e.unavailable("bypass check", err)
	}
	if bypass {
		decision := Decision{Allowed: true, Reason: BypassReason}
		e.observe("bypass")
		e.record(actor, req, decision)
		return decision, nil
	}

	key := DecisionKey(actor.ID, req.Resource, req.Action, req.Scope)
	if decision, ok := e.cache.Get(ctx, key); ok {
		e.observe("cache_hit")
		e.record(actor, req, decision)
		return decision, nil
	}

	decision, decided := Decision{}, false
	for _, src := range e.sources {
		res, err := src.Check(ctx, actor, req)
		if err != nil {
			return Decision{}, e.unavailable(src.Name()+" source", err)
		}
		switch res.Outcome {
		case OutcomeAllow:
			decision, decided = Decision{Allowed: true, Reason: res.Reason}, true
		case OutcomeDeny:
			decision, decided = Decision{Allowed: false, Reason: res.Reason}, true
		}
		if decided {
			break
		}
	}
	if !decided {
		if req.Scope != ScopeNone {
			// Most expensive path, so it only runs when no cheaper source
			// resolved the decision.
			decision, err = checkOwnership(ctx, e.ownerships, actor, req)
			if err != nil {
				return Decision{}, e.unavailable("ownership check", err)
			}
		} else {
			decision = deniedFor(req)
		}
	}

	e.cache.Set(ctx, key, decision)
	if decision.Allowed {
		e.observe("allow")
	} else {
		e.observe("deny")
	}
	e.record(actor, req, decision)
	return decision, nil
}

func (e *Evaluator) record(actor shared.Actor, req Requirement, decision Decision) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(Record{
		ActorID:  actor.ID,
		Resource: req.Resource,
		Action:   req.Action,
		Scope:    req.Scope,
		Allowed:  decision.Allowed,
		Reason:   decision.Reason,
		At:       e.now(),
	})
}

func (e *Evaluator) observe(outcome string) {
	if e.observer != nil {
		e.observer.ObserveDecision(outcome)
	}
}

func (e *Evaluator) unavailable(stage string, err error) error {
	if e.logger != nil {
		e.logger.Error("authorization evaluation failed", slog.String("stage", stage), slog.Any("error", err))
	}
	return fmt.Errorf("%w: %s: %v", ErrEvaluationUnavailable, stage, err)
}

// Invalidator bundles the cache invalidations grant writers must run
// synchronously as part of their write path.
type Invalidator struct {
	cache  *DecisionCache
	bypass *BypassChecker
}

// NewInvalidator constructs an Invalidator.
func NewInvalidator(cache *DecisionCache, bypass *BypassChecker) *Invalidator {
	return &Invalidator{cache: cache, bypass: bypass}
}

// Actor drops every cached decision and the bypass flag for one actor. Used
// after override, direct grant, role-permission link or membership changes.
func (i *Invalidator) Actor(ctx context.Context, actorID int64) error {
	if err := i.cache.InvalidateActor(ctx, actorID); err != nil {
		return err
	}
	return i.bypass.Invalidate(ctx, actorID)
}

// All drops every cached decision and every cached bypass flag. Used after
// permission or role definition changes, whose blast radius is unbounded:
// deactivating a level 0 role must also revoke its members' cached bypass.
func (i *Invalidator) All(ctx context.Context) error {
	if err := i.cache.InvalidateAll(ctx); err != nil {
		return err
	}
	return i.bypass.InvalidateAll(ctx)
}
