package auth

import (
	"context"
	"net/http"

	"cinetrail/models"
)

// ContextKey is the type used for context keys
type ContextKey string

const (
	ContextKeyAccountID ContextKey = "accountID"
	ContextKeySession   ContextKey = "session"
)

// WithSession stores an authenticated session and its account id on ctx.
func WithSession(ctx context.Context, session models.Session) context.Context {
	ctx = context.WithValue(ctx, ContextKeyAccountID, session.AccountID)
	return context.WithValue(ctx, ContextKeySession, session)
}

// GetAccountID retrieves the authenticated account ID from the request context.
func GetAccountID(r *http.Request) string {
	if id, ok := r.Context().Value(ContextKeyAccountID).(string); ok {
		return id
	}
	return ""
}

// GetSession returns the session attached by the auth middleware.
func GetSession(r *http.Request) (models.Session, bool) {
	session, ok := r.Context().Value(ContextKeySession).(models.Session)
	return session, ok
}
