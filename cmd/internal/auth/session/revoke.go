package session

import (
	"strings"

	"sessiond/cmd/security/token"
)

// RevokeSession deletes id. It is idempotent and reports whether an entry was
// actually removed.
func (m *Manager) RevokeSession(id string) bool {
	if !validID(id) {
		return false
	}

	rec, found := m.store.Update(id, func(*Session) bool { return false })
	if !found {
		return false
	}

	m.obs.SessionsRevoked("single", 1)
	m.log.Info("session.revoked", "session", token.Fingerprint(id), "user_id", rec.UserID)
	m.emit(ActionRevoked, rec.UserID, map[string]any{
		"session": token.Fingerprint(id),
	})
	return true
}

// RevokeAllForUser deletes every session belonging to userID and returns the count.
//
// The scan walks the store one shard at a time. It targets sessions that
// existed when the call started; a session created for the user while the
// scan is in flight may survive.
func (m *Manager) RevokeAllForUser(userID string) int {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0
	}

	n := m.store.Scan(func(s *Session) bool { return s.UserID == userID })

	m.obs.SessionsRevoked("all", n)
	m.log.Info("session.revoked_all", "user_id", userID, "count", n)
	m.emit(ActionRevokedAll, userID, map[string]any{
		"count": n,
	})
	return n
}

// RevokeOthersForUser deletes every session of userID except keepID.
// Best-effort in the same way as RevokeAllForUser.
func (m *Manager) RevokeOthersForUser(userID, keepID string) int {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0
	}

	n := m.store.Scan(func(s *Session) bool { return s.UserID == userID && s.ID != keepID })

	m.obs.SessionsRevoked("others", n)
	m.log.Info("session.revoked_others", "user_id", userID, "kept", token.Fingerprint(keepID), "count", n)
	m.emit(ActionRevokedOthers, userID, map[string]any{
		"count": n,
		"kept":  token.Fingerprint(keepID),
	})
	return n
}
