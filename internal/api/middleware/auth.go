package middleware

import (
	"context"
	"net/http"

	"github.com/mcoot/playerinfo-proxy/internal/api/apierr"
	sharedmw "github.com/mcoot/playerinfo-proxy/internal/middleware"
	"github.com/mcoot/playerinfo-proxy/internal/services/auth"
	"github.com/mcoot/playerinfo-proxy/internal/services/session"
)

type contextKey string

const sessionContextKey contextKey = "session"

// RequireLogin rejects requests without a live session with 401.
// When authentication is disabled every request passes.
func RequireLogin(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authService.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			token := sharedmw.ExtractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			sess, ok := authService.Validate(token)
			if !ok {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession returns the session from the request context
func GetSession(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(session.Session)
	return sess, ok
}
