package session

import (
	"sort"
	"strings"
	"time"

	"sessiond/cmd/security/token"
)

// redactedIDLength is how much of a token a Summary exposes.
const redactedIDLength = 8

// Summary is a redacted, read-only view of a live session for listing.
type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Metadata     Metadata  `json:"metadata"`
}

// Stats is a point-in-time count of stored sessions.
type Stats struct {
	Total             int           `json:"total"`
	Live              int           `json:"active"`
	DeadNotYetSwept   int           `json:"expired"`
	InactivityTimeout time.Duration `json:"-"`
	MaxLifetime       time.Duration `json:"-"`
}

// Remaining reports how long a live session has left under each limit.
type Remaining struct {
	InactivityRemaining time.Duration
	LifetimeRemaining   time.Duration
	// ExpiryCause is the limit that will end the session first.
	ExpiryCause Cause
}

// ListSessionsForUser returns redacted summaries of the user's live sessions,
// oldest first. Dead entries are skipped but left for the sweeper.
func (m *Manager) ListSessionsForUser(userID string) []Summary {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}

	now := m.now()
	type entry struct {
		id  string
		sum Summary
	}
	var found []entry
	m.store.Range(func(s *Session) {
		if s.UserID != userID || !m.policy.Evaluate(s, now).Live {
			return
		}
		found = append(found, entry{id: s.ID, sum: summarize(s)})
	})

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.sum.CreatedAt.Equal(b.sum.CreatedAt) {
			return a.sum.CreatedAt.Before(b.sum.CreatedAt)
		}
		return a.id < b.id
	})

	out := make([]Summary, 0, len(found))
	for _, e := range found {
		out = append(out, e.sum)
	}
	return out
}

// Stats counts stored sessions by liveness at a single instant.
// Counts are approximate under concurrent writes.
func (m *Manager) Stats() Stats {
	now := m.now()
	st := Stats{
		InactivityTimeout: m.cfg.InactivityTimeout,
		MaxLifetime:       m.cfg.MaxLifetime,
	}
	m.store.Range(func(s *Session) {
		st.Total++
		if m.policy.Evaluate(s, now).Live {
			st.Live++
		} else {
			st.DeadNotYetSwept++
		}
	})
	return st
}

// TimeRemaining reports the remaining budget of a live session without
// touching it. Absent or dead ids yield ErrNotFound; dead entries are evicted.
func (m *Manager) TimeRemaining(id string) (Remaining, error) {
	if !validID(id) {
		return Remaining{}, ErrNotFound
	}

	now := m.now()
	var verdict Verdict
	rec, found := m.store.Update(id, func(s *Session) bool {
		verdict = m.policy.Evaluate(s, now)
		return verdict.Live
	})
	if !found {
		m.log.Debug("session.lookup.miss", "op", "remaining", "session", token.Fingerprint(id))
		return Remaining{}, ErrNotFound
	}
	if !verdict.Live {
		m.expired(rec, verdict.Cause, "remaining")
		return Remaining{}, ErrNotFound
	}
	return Remaining{
		InactivityRemaining: verdict.InactivityRemaining,
		LifetimeRemaining:   verdict.LifetimeRemaining,
		ExpiryCause:         verdict.NextCause,
	}, nil
}

func summarize(s *Session) Summary {
	md := s.Metadata.Clone()
	if prev, ok := md.Get(MetaPreviousID); ok {
		if v, ok := prev.Str(); ok {
			md.Set(MetaPreviousID, StringValue(RedactID(v)))
		}
	}
	return Summary{
		ID:           RedactID(s.ID),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		ExpiresAt:    s.ExpiresAt,
		Metadata:     md,
	}
}

// RedactID shortens a token for display: the first 8 characters plus "...".
func RedactID(id string) string {
	if len(id) <= redactedIDLength {
		return id + "..."
	}
	return id[:redactedIDLength] + "..."
}
