package api

import (
	"context"
	"net/http"

	"sessiond/cmd/internal/auth/session"
	"sessiond/cmd/security/token"
)

type ctxKey struct{}

// SessionFromContext returns the session attached by RequireSession.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(session.Session)
	return s, ok
}

// RequireSession resolves the session cookie, slides its inactivity window and
// attaches the session to the request context.
//
// If the operator behind the session has since been disabled, the session is
// revoked and the request is refused with 403.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := h.sessionIDFromRequest(r)
		if sid == "" {
			h.writeUnauthenticated(w)
			return
		}
		s, err := h.sessions.GetSession(sid)
		if err != nil {
			h.writeUnauthenticated(w)
			return
		}

		if op, ok := h.creds.Lookup(s.UserID); !ok || op.Disabled() {
			status := "removed"
			if ok {
				status = op.Status
			}
			h.sessions.RevokeSession(sid)
			h.clearSessionCookie(w)
			h.auditStatusTerminated(r, s, status)
			h.log.Warn("auth.session.terminated_status",
				"session", token.Fingerprint(sid),
				"user_id", s.UserID,
				"status", status,
			)
			writeError(w, http.StatusForbidden, "account_disabled", "account is not active")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, s)))
	})
}

// RequireRole admits sessions whose profile role is one of roles. It must run
// after RequireSession.
func (h *Handler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFromContext(r.Context())
			if !ok {
				h.writeUnauthenticated(w)
				return
			}
			if _, ok := allowed[s.Profile.Role]; !ok {
				writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
