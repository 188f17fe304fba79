package appctx

import "context"

// Actor identifies the authenticated user performing an operation.
// Stock movements and audit entries record the actor for traceability.
type Actor struct {
	UserID   string
	Name     string
	BranchID string
}

type actorKey struct{}

// WithActor adds the actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// GetActor returns the actor from context or nil.
func GetActor(ctx context.Context) *Actor {
	if a, ok := ctx.Value(actorKey{}).(*Actor); ok {
		return a
	}
	return nil
}

// ActorID returns the actor's user id, or "system" when no actor is present
// (worker processes, seeds).
func ActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.UserID != "" {
		return a.UserID
	}
	return "system"
}
