// Package actorctx carries the authenticated caller through the request
// context. Services never look roles up ambiently; the middleware resolves
// the caller once and every workflow receives it from here.
package actorctx

import (
	"context"

	"github.com/assesshub/backoffice/internal/rbac"
)

type actorKey struct{}

// WithActor attaches the resolved caller to the context.
func WithActor(ctx context.Context, actor rbac.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the resolved caller, failing closed when absent.
func ActorFromContext(ctx context.Context) (rbac.Actor, bool) {
	if ctx == nil {
		return rbac.Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(rbac.Actor)
	if !ok || actor.ID == 0 {
		return rbac.Actor{}, false
	}
	return actor, true
}
