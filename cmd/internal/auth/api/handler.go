package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sessiond/cmd/internal/auth/session"
	"sessiond/cmd/internal/operators"
	"sessiond/cmd/security/token"

	"github.com/go-chi/chi/v5"
)

// CredentialVerifier authenticates operators and re-reads their status.
// *operators.Directory satisfies it.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, email, password string) (operators.Operator, error)
	Lookup(id string) (operators.Operator, bool)
}

// Handler wires HTTP auth endpoints to the session manager.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions *session.Manager
	sessCfg  session.Config
	creds    CredentialVerifier
	audit    session.AuditSink
	limiter  *ipLimiter

	now func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuditSink sets the sink for login and status events.
func WithAuditSink(sink session.AuditSink) HandlerOption {
	return func(h *Handler) {
		if h == nil || sink == nil {
			return
		}
		h.audit = sink
	}
}

// WithClock overrides the wall clock used for throttling.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Manager, creds CredentialVerifier, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session manager")
	}
	if creds == nil {
		return nil, errors.New("auth: nil credential verifier")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.normalized()

	h := &Handler{
		log:      log.With("component", "auth_api"),
		cfg:      cfg,
		sessions: sessions,
		sessCfg:  sessions.Config(),
		creds:    creds,
		limiter:  newIPLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst, cfg.LimiterIdleTTL),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Routes mounts the auth and admin endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/rotate", h.handleRotate)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Post("/logout_all", h.handleLogoutAll)
			r.Post("/logout_others", h.handleLogoutOthers)
			r.Get("/session", h.handleSession)
			r.Get("/sessions", h.handleSessions)
			r.With(h.RequireRole(operators.RoleAdmin)).Get("/stats", h.handleStats)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireSession, h.RequireRole(operators.RoleAdmin))
		r.Delete("/users/{userID}/sessions", h.handleAdminRevokeUser)
		r.Post("/sweep", h.handleAdminSweep)
	})
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	if ok, retryAfter := h.limiter.allow(ip, h.now()); !ok {
		h.auditLoginRateLimited(ip, ua, email, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	op, err := h.creds.Authenticate(r.Context(), email, req.Password)
	switch {
	case errors.Is(err, operators.ErrAccountDisabled):
		h.auditLoginBlocked(ip, ua, op.ID, op.Status)
		writeError(w, http.StatusForbidden, "account_disabled", "account is not active")
		return
	case errors.Is(err, operators.ErrInvalidCredentials):
		h.auditLoginFailed(ip, ua, email, "invalid_credentials")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
		return
	case err != nil:
		h.log.Error("auth.login.verify.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	ipStr := ""
	if ip != nil {
		ipStr = ip.String()
	}
	sid, rotated, err := h.issue(r, op, ipStr, ua)
	if err != nil {
		h.log.Error("auth.login.issue.fail", "user_id", op.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.setSessionCookie(w, sid)
	h.auditLoginSuccess(ip, ua, op.ID, sid, rotated)
	h.log.Info("auth.login.success", "user_id", op.ID, "session", token.Fingerprint(sid), "rotated", rotated)

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		User:    userFromOperator(op),
		Session: sessionTimeouts{
			ExpiresIn:   seconds(h.sessCfg.InactivityTimeout),
			MaxLifetime: seconds(h.sessCfg.MaxLifetime),
		},
	})
}

// issue rotates a live cookie session that already belongs to op, and
// otherwise revokes whatever the cookie pointed at and creates a new session.
func (h *Handler) issue(r *http.Request, op operators.Operator, ip, ua string) (string, bool, error) {
	if prev := h.sessionIDFromRequest(r); prev != "" {
		if s, err := h.sessions.GetSession(prev); err == nil && s.UserID == op.ID {
			if next, err := h.sessions.RotateID(prev); err == nil {
				return next, true, nil
			}
		}
		h.sessions.RevokeSession(prev)
	}

	md := session.NewMetadata(
		session.Field{Key: "ip", Value: session.StringValue(ip)},
		session.Field{Key: "userAgent", Value: session.StringValue(ua)},
		session.Field{Key: "loginAt", Value: session.IntValue(h.now().Unix())},
	)
	sid, err := h.sessions.CreateSession(op.ID, profileFromOperator(op), md)
	return sid, false, err
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sid := h.sessionIDFromRequest(r); sid != "" {
		h.sessions.RevokeSession(sid)
	}
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	n := h.sessions.RevokeAllForUser(s.UserID)
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, revokedResponse{Success: true, Revoked: n})
}

func (h *Handler) handleLogoutOthers(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	n := h.sessions.RevokeOthersForUser(s.UserID, s.ID)
	writeJSON(w, http.StatusOK, revokedResponse{Success: true, Revoked: n})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	rem, err := h.sessions.TimeRemaining(s.ID)
	if err != nil {
		h.writeUnauthenticated(w)
		return
	}
	writeJSON(w, http.StatusOK, currentSessionResponse{
		Authenticated: true,
		User:          userFromSession(s),
		Session: sessionView{
			ID:           session.RedactID(s.ID),
			CreatedAt:    s.CreatedAt,
			LastActivity: s.LastActivity,
			ExpiresAt:    s.ExpiresAt,
			TimeRemaining: timeRemaining{
				InactivitySeconds: seconds(rem.InactivityRemaining),
				LifetimeSeconds:   seconds(rem.LifetimeRemaining),
				ExpiresBy:         rem.ExpiryCause.String(),
			},
		},
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionIDFromRequest(r)
	if _, err := h.sessions.RefreshSession(sid); err != nil {
		h.writeUnauthenticated(w)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Success:   true,
		ExpiresIn: seconds(h.sessCfg.InactivityTimeout),
	})
}

func (h *Handler) handleRotate(w http.ResponseWriter, r *http.Request) {
	sid := h.sessionIDFromRequest(r)
	next, err := h.sessions.RotateID(sid)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			h.log.Error("auth.rotate.fail", "session", token.Fingerprint(sid), "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
			return
		}
		h.writeUnauthenticated(w)
		return
	}
	h.setSessionCookie(w, next)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	s, _ := SessionFromContext(r.Context())
	list := h.sessions.ListSessionsForUser(s.UserID)
	if list == nil {
		list = []session.Summary{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{
		Sessions:       list,
		CurrentSession: session.RedactID(s.ID),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := h.sessions.Stats()
	writeJSON(w, http.StatusOK, statsResponse{Stats: statsView{
		Stats:             st,
		InactivityTimeout: seconds(st.InactivityTimeout),
		MaxLifetime:       seconds(st.MaxLifetime),
	}})
}

func (h *Handler) handleAdminRevokeUser(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user id is required")
		return
	}
	n := h.sessions.RevokeAllForUser(userID)
	admin, _ := SessionFromContext(r.Context())
	h.log.Info("auth.admin.revoke_user", "admin_id", admin.UserID, "user_id", userID, "count", n)
	writeJSON(w, http.StatusOK, revokedResponse{Success: true, Revoked: n})
}

func (h *Handler) handleAdminSweep(w http.ResponseWriter, r *http.Request) {
	n := h.sessions.SweepOnce()
	admin, _ := SessionFromContext(r.Context())
	h.log.Info("auth.admin.sweep", "admin_id", admin.UserID, "evicted", n)
	writeJSON(w, http.StatusOK, sweepResponse{Success: true, Evicted: n})
}
