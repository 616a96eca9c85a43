package session

import (
	"time"

	"sessiond/cmd/security/token"
)

// RotateID replaces oldID with a fresh id for the same session.
//
// Identity, profile, CreatedAt and ExpiresAt carry over; LastActivity is set
// to now, rotationCount is incremented and previousId records oldID. The
// absolute deadline is never extended, so repeated rotation cannot keep a
// stolen session alive past its cap.
//
// The swap is a single store step: readers see either the old id or the new
// one, never both and never neither.
func (m *Manager) RotateID(oldID string) (string, error) {
	if !validID(oldID) {
		return "", ErrNotFound
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		newID, err := m.ids.NewID()
		if err != nil {
			m.log.Error("session.rotate.id.fail", "err", err)
			return "", err
		}
		if newID == oldID {
			continue
		}

		now := m.now()
		var (
			verdict Verdict
			prev    Session
		)
		outcome := m.store.Replace(oldID, newID, func(old Session) (Session, bool, bool) {
			prev = old
			verdict = m.policy.Evaluate(&old, now)
			if !verdict.Live {
				return Session{}, false, true
			}

			next := old.Clone()
			next.touch(now)
			next.Metadata.Set(MetaRotationCount, IntValue(old.Metadata.RotationCount()+1))
			next.Metadata.Set(MetaPreviousID, StringValue(oldID))
			return next, true, false
		})

		switch outcome {
		case Replaced:
			m.obs.SessionRotated()
			m.log.Info("session.rotated",
				"session", token.Fingerprint(newID),
				"previous", token.Fingerprint(oldID),
				"user_id", prev.UserID,
			)
			m.emit(ActionRotated, prev.UserID, map[string]any{
				"session":        token.Fingerprint(newID),
				"previous":       token.Fingerprint(oldID),
				"rotation_count": prev.Metadata.RotationCount() + 1,
				"expires_at":     prev.ExpiresAt.Format(time.RFC3339),
			})
			return newID, nil
		case ReplaceMissing:
			m.log.Debug("session.lookup.miss", "op", "rotate", "session", token.Fingerprint(oldID))
			return "", ErrNotFound
		case ReplaceRejected:
			m.expired(prev, verdict.Cause, "rotate")
			return "", ErrNotFound
		case ReplaceConflict:
			m.log.Warn("session.rotate.id.collision", "attempt", attempt+1)
		}
	}
	return "", ErrIDGeneration
}
