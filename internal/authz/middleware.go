package authz

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
	"github.com/scholaris-edu/scholaris/internal/shared"
)

const maxBodyPeek = 1 << 20

// Middleware guards HTTP routes with the policy evaluator.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// Req is a convenience constructor for route declarations.
func Req(resource, action string, scope Scope) Requirement {
	return Requirement{Resource: resource, Action: action, Scope: scope}
}

// Require ensures the current actor satisfies every given requirement.
// Denials answer 403 with the aggregated reasons; an unreachable store
// answers 503 instead of a misleading 403.
func (m Middleware) Require(reqs ...Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(reqs) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			resourceID := extractResourceID(r)
			resolved := make([]Requirement, len(reqs))
			for i, req := range reqs {
				if req.ResourceID == nil {
					req.ResourceID = resourceID
				}
				resolved[i] = req
			}
			result, err := m.Evaluator.Evaluate(r.Context(), *actor, resolved)
			if err != nil {
				if errors.Is(err, ErrEvaluationUnavailable) {
					httpx.Problem(w, http.StatusServiceUnavailable, "Authorization Unavailable", "authorization could not be evaluated")
					return
				}
				if m.Logger != nil {
					m.Logger.Error("authorization middleware", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !result.Allowed {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", strings.Join(result.DeniedReasons, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractResourceID pulls the target resource id from the request, checking
// the URL parameter first, then the JSON body, then the query string. The
// body is restored so handlers can still decode it.
func extractResourceID(r *http.Request) *int64 {
	if raw := chi.URLParam(r, "id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &id
		}
	}
	if id := peekBodyID(r); id != nil {
		return id
	}
	if raw := r.URL.Query().Get("id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &id
		}
	}
	return nil
}

func peekBodyID(r *http.Request) *int64 {
	if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return nil
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	var body struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return body.ID
}
