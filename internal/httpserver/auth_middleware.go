package httpserver

import (
	"context"
	"net/http"

	"github.com/Zimam07/Sonjog/internal/domain"
	"github.com/Zimam07/Sonjog/internal/ws"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// WithUser returns a new context carrying the current user.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// CurrentUser extracts the current user from context, if any.
func CurrentUser(r *http.Request) *domain.User {
	if u, ok := r.Context().Value(userContextKey).(*domain.User); ok {
		return u
	}
	return nil
}

// AuthMiddleware resolves the session token (cookie or bearer header) and
// attaches the user to the request context.
func AuthMiddleware(auth ws.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ws.TokenFromRequest(r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
				return
			}
			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid session"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
