package httpx

import (
	"context"

	domainauth "github.com/serm-lab/admin-console/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same key.
type sessionKey struct{}

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSessionFromContext returns the session admitted by the guard middleware,
// or nil on unguarded routes.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	if s, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && s != nil {
		return s
	}
	return nil
}

// CurrentUser returns the authenticated user carried by ctx.
func CurrentUser(ctx context.Context) (*domainauth.User, bool) {
	s := GetSessionFromContext(ctx)
	if s == nil || !s.IsAuthenticated || s.User == nil {
		return nil, false
	}
	return s.User, true
}
