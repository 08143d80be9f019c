package auth

import (
	"context"
	"net/http"

	"github.com/2beens/gymrotation/internal/fitness"
)

const (
	TokenHeader     = "X-Token"
	TokenQueryParam = "token"
)

type actorCtxKey struct{}

func WithActor(ctx context.Context, actor fitness.Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// ActorFromContext returns the actor put there by the auth middleware.
func ActorFromContext(ctx context.Context) (fitness.Actor, bool) {
	actor, ok := ctx.Value(actorCtxKey{}).(fitness.Actor)
	return actor, ok
}

// TokenFromRequest reads the token header, falling back to the query param.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(TokenHeader); token != "" {
		return token
	}
	return r.URL.Query().Get(TokenQueryParam)
}
