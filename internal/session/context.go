package session

import "context"

type sessionIDKey struct{}

// ContextWithID returns a copy of ctx carrying the session id.
// Flush passes its session id to the persister this way.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// IDFromContext returns the session id carried by ctx, if any.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok && id != ""
}
