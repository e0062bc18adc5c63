package identity

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
	"github.com/scholaris-edu/scholaris/internal/shared"
)

// Authenticator resolves the bearer token into an actor snapshot in context.
type Authenticator struct {
	Sessions *SessionStore
	Logger   *slog.Logger
}

// Middleware rejects requests without a valid session. A Redis outage here
// answers 503: without the actor snapshot no authorization is possible.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		actor, err := a.Sessions.Get(r.Context(), token)
		if err != nil {
			if a.Logger != nil {
				a.Logger.Error("session lookup", slog.Any("error", err))
			}
			httpx.Problem(w, http.StatusServiceUnavailable, "Session Unavailable", "session store unreachable")
			return
		}
		if actor == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired session")
			return
		}
		ctx := shared.ContextWithActor(r.Context(), actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
