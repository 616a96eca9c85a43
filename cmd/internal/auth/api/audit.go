package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"sessiond/cmd/internal/auth/session"
	"sessiond/cmd/security/token"
)

// Audit actions emitted by the auth API.
const (
	ActionLoginSuccess      = "auth.login.success"
	ActionLoginFailed       = "auth.login.failed"
	ActionLoginRateLimited  = "auth.login.rate_limited"
	ActionLoginBlocked      = "auth.login.blocked"
	ActionSessionTerminated = "auth.session.terminated_status"
)

func (h *Handler) record(action, userID string, details map[string]any) {
	if h.audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("auth.audit.panic", "action", action, "panic", r)
		}
	}()
	h.audit.Record(action, userID, details)
}

func requestDetails(ip net.IP, ua string) map[string]any {
	d := map[string]any{}
	if ip != nil {
		d["ip"] = ip.String()
	}
	if ua != "" {
		d["user_agent"] = ua
	}
	return d
}

func (h *Handler) auditLoginFailed(ip net.IP, ua, email, reason string) {
	d := requestDetails(ip, ua)
	d["email"] = email
	d["reason"] = reason
	h.record(ActionLoginFailed, "", d)
}

func (h *Handler) auditLoginRateLimited(ip net.IP, ua, email string, retryAfter time.Duration) {
	d := requestDetails(ip, ua)
	d["email"] = email
	d["retry_after_seconds"] = int64(retryAfter / time.Second)
	h.record(ActionLoginRateLimited, "", d)
}

func (h *Handler) auditLoginBlocked(ip net.IP, ua, userID, status string) {
	d := requestDetails(ip, ua)
	d["status"] = status
	h.record(ActionLoginBlocked, userID, d)
}

func (h *Handler) auditLoginSuccess(ip net.IP, ua, userID, sid string, rotated bool) {
	d := requestDetails(ip, ua)
	d["session"] = token.Fingerprint(sid)
	d["rotated"] = rotated
	h.record(ActionLoginSuccess, userID, d)
}

func (h *Handler) auditStatusTerminated(r *http.Request, s session.Session, status string) {
	d := requestDetails(clientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))
	d["session"] = token.Fingerprint(s.ID)
	d["status"] = status
	h.record(ActionSessionTerminated, s.UserID, d)
}
