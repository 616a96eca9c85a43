package session

import (
	"log/slog"
	"strings"
	"time"

	"sessiond/cmd/security/token"
)

// maxIDLength rejects pathological inputs before they reach the store.
const maxIDLength = 512

// AuditSink receives best-effort lifecycle notifications.
//
// Record must not block. The Manager also recovers from a panicking sink, so
// a faulty sink can never fail a session operation.
type AuditSink interface {
	Record(action, userID string, details map[string]any)
}

// Audit actions emitted by the Manager.
const (
	ActionCreated        = "session.created"
	ActionDeniedExpired  = "session.denied_expired"
	ActionRotated        = "session.rotated"
	ActionRevoked        = "session.revoked"
	ActionRevokedAll     = "session.revoked_all"
	ActionRevokedOthers  = "session.revoked_others"
	ActionSweepCompleted = "session.sweep"
)

// Observer receives counters for metrics. Implementations must be cheap and non-blocking.
type Observer interface {
	SessionCreated()
	SessionExpired(cause Cause)
	SessionRotated()
	SessionsRevoked(scope string, n int)
	SessionsSwept(n int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) SessionCreated() {}
func (nopObserver) SessionExpired(Cause) {}
func (nopObserver) SessionRotated() {}
func (nopObserver) SessionsRevoked(string, int) {}
func (nopObserver) SessionsSwept(int, time.Duration) {}

// Manager is the session authority: the single owner of session state.
//
// Construct one per process and inject it where requests are handled.
type Manager struct {
	cfg    Config
	policy Policy
	store  Store
	ids    IDGenerator
	audit  AuditSink
	obs    Observer
	log    *slog.Logger
	now    func() time.Time
}

// Option configures optional Manager dependencies.
type Option func(*Manager)

// WithStore overrides the default MemoryStore.
func WithStore(st Store) Option {
	return func(m *Manager) {
		if st != nil {
			m.store = st
		}
	}
}

// WithIDGenerator overrides the crypto/rand id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) {
		if g != nil {
			m.ids = g
		}
	}
}

// WithAuditSink sets the sink for lifecycle notifications.
func WithAuditSink(sink AuditSink) Option {
	return func(m *Manager) { m.audit = sink }
}

// WithObserver sets the metrics observer.
func WithObserver(obs Observer) Option {
	return func(m *Manager) {
		if obs != nil {
			m.obs = obs
		}
	}
}

// WithClock overrides the wall clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager validates cfg and constructs a Manager.
func NewManager(cfg Config, log *slog.Logger, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	m := &Manager{
		cfg:    cfg,
		policy: Policy{InactivityTimeout: cfg.InactivityTimeout},
		ids:    RandomIDGenerator{},
		obs:    nopObserver{},
		log:    log.With("component", "session_manager"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(m)
	}
	if m.store == nil {
		m.store = NewMemoryStore(cfg.shardCount())
	}

	m.log.Info("session.manager.init",
		"inactivity_timeout", cfg.InactivityTimeout.String(),
		"max_lifetime", cfg.MaxLifetime.String(),
		"cleanup_interval", cfg.CleanupInterval.String(),
	)
	return m, nil
}

// Config returns the configuration the Manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// CreateSession registers a new session for userID and returns its bearer token.
//
// profile and metadata are copied; metadata's rotationCount is reset to 0.
func (m *Manager) CreateSession(userID string, profile Profile, metadata Metadata) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrInvalidArgument
	}

	now := m.now()
	rec := Session{
		UserID:       userID,
		Profile:      profile.Clone(),
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.cfg.MaxLifetime),
		Metadata:     metadata.Clone(),
	}
	rec.Metadata.Set(MetaRotationCount, IntValue(0))

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := m.ids.NewID()
		if err != nil {
			m.log.Error("session.create.id.fail", "err", err)
			return "", err
		}
		rec.ID = id
		if !m.store.Insert(rec) {
			m.log.Warn("session.create.id.collision", "attempt", attempt+1)
			continue
		}

		m.obs.SessionCreated()
		m.log.Info("session.created", "session", token.Fingerprint(id), "user_id", userID)
		m.emit(ActionCreated, userID, map[string]any{
			"session":    token.Fingerprint(id),
			"expires_at": rec.ExpiresAt.Format(time.RFC3339),
		})
		return id, nil
	}
	return "", ErrIDGeneration
}

// GetSession returns the live session for id and slides its inactivity window.
//
// Absent and dead ids both yield ErrNotFound; a dead entry is deleted on the
// spot so it can never be served again, even before the next sweep.
func (m *Manager) GetSession(id string) (Session, error) {
	return m.access(id, "get")
}

// RefreshSession has the same touch semantics as GetSession.
func (m *Manager) RefreshSession(id string) (Session, error) {
	return m.access(id, "refresh")
}

func (m *Manager) access(id, op string) (Session, error) {
	if !validID(id) {
		return Session{}, ErrNotFound
	}

	now := m.now()
	var verdict Verdict
	rec, found := m.store.Update(id, func(s *Session) bool {
		verdict = m.policy.Evaluate(s, now)
		if !verdict.Live {
			return false
		}
		s.touch(now)
		return true
	})
	if !found {
		m.log.Debug("session.lookup.miss", "op", op, "session", token.Fingerprint(id))
		return Session{}, ErrNotFound
	}
	if !verdict.Live {
		m.expired(rec, verdict.Cause, op)
		return Session{}, ErrNotFound
	}
	return rec, nil
}

// expired reports an eagerly evicted session. The cause stays internal:
// callers only ever see ErrNotFound.
func (m *Manager) expired(rec Session, cause Cause, op string) {
	attrs := []any{
		"op", op,
		"session", token.Fingerprint(rec.ID),
		"user_id", rec.UserID,
		"cause", cause.String(),
	}
	if cause == CauseLifetime {
		m.log.Warn("session.expired", attrs...)
	} else {
		m.log.Info("session.expired", attrs...)
	}

	m.obs.SessionExpired(cause)
	m.emit(ActionDeniedExpired, rec.UserID, map[string]any{
		"session": token.Fingerprint(rec.ID),
		"cause":   cause.String(),
		"op":      op,
	})
}

func (m *Manager) emit(action, userID string, details map[string]any) {
	if m.audit == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("session.audit.panic", "action", action, "panic", r)
		}
	}()
	m.audit.Record(action, userID, details)
}

func validID(id string) bool {
	return id != "" && len(id) <= maxIDLength
}
