package shared

import (
	"context"
	"net/http"
	"strconv"
)

// ActorHeader carries the id of the staff member acting on a request.
const ActorHeader = "X-Actor-ID"

type actorContextKey struct{}

// ContextWithActor stores the acting staff member id in context.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the actor id. Zero means the system.
func ActorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorContextKey{}).(int64)
	return id
}

// ActorFromRequest resolves the actor from context, falling back to
// ActorHeader. Malformed or negative values resolve to zero.
func ActorFromRequest(r *http.Request) int64 {
	if id := ActorFromContext(r.Context()); id > 0 {
		return id
	}
	id, err := strconv.ParseInt(r.Header.Get(ActorHeader), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// ActorMiddleware lifts ActorHeader into the request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := ActorFromRequest(r); id > 0 {
			r = r.WithContext(ContextWithActor(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
