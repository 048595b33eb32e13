package shared

import (
	"context"
	"net/http"
	"strings"
)

// Headers set by the gateway in front of the service.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// Actor identifies the caller as asserted by the gateway.
type Actor struct {
	ID    string
	Role  string
	Token string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor; the zero Actor when absent.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}

// ActorFromRequest reads the gateway headers and the bearer token.
func ActorFromRequest(r *http.Request) Actor {
	actor := Actor{
		ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Role: strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))),
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		actor.Token = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return actor
}

// ActorMiddleware places the request actor in context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithActor(r.Context(), ActorFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
