package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/stockgame/internal/api/apierr"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/services/auth"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionCookie is the cookie login sets alongside the returned token
const SessionCookie = "session"

// Auth creates authentication middleware. The token subject is the only
// player identity downstream handlers see.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := authService.ValidateSession(extractToken(r))
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the session token from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	// Fall back to cookie
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}

// MustGetPlayerID returns the authenticated player's ID or panics
func MustGetPlayerID(ctx context.Context) model.PlayerID {
	session := GetSession(ctx)
	if session == nil {
		panic("no session in context - auth middleware not applied?")
	}
	return session.PlayerID
}
