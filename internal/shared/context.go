package shared

import "context"

type actorContextKey struct{}

// Actor identifies the already-authorized caller supplied by the identity
// layer. The core never authorizes; it only records who acted.
type Actor struct {
	UserID string
	Role   string
}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
