package shared

import "context"

// Actor is the authenticated identity snapshot resolved once per request.
// Affiliations are optional; staff without a placement carry nil values.
type Actor struct {
	ID           int64
	SchoolID     *int64
	DepartmentID *int64
	PositionID   *int64
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context, nil when unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}
