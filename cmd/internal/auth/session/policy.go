package session

import "time"

// Cause names why a session is (or will first become) dead.
type Cause int

const (
	// CauseNone marks a live session.
	CauseNone Cause = iota
	// CauseInactivity is the sliding inactivity window running out.
	CauseInactivity
	// CauseLifetime is the absolute lifetime cap being passed.
	CauseLifetime
)

// String returns the wire/log label for c.
func (c Cause) String() string {
	switch c {
	case CauseInactivity:
		return "inactivity"
	case CauseLifetime:
		return "lifetime"
	default:
		return "none"
	}
}

// Policy is the dual-timeout expiration rule.
type Policy struct {
	InactivityTimeout time.Duration
}

// Verdict is the result of evaluating a session at an instant.
type Verdict struct {
	// Live is true iff now-LastActivity <= InactivityTimeout and now <= ExpiresAt.
	Live bool

	// Cause is CauseNone when live; otherwise the reason it died.
	// Inactivity is reported first when both limits have passed.
	Cause Cause

	// NextCause is the limit that will end a live session first.
	// Ties go to lifetime.
	NextCause Cause

	InactivityRemaining time.Duration
	LifetimeRemaining   time.Duration
}

// Evaluate is the single liveness function shared by every read path.
// It is pure: it never mutates s.
func (p Policy) Evaluate(s *Session, now time.Time) Verdict {
	idle := now.Sub(s.LastActivity)
	inactivityLeft := p.InactivityTimeout - idle
	lifetimeLeft := s.ExpiresAt.Sub(now)

	v := Verdict{
		InactivityRemaining: clampZero(inactivityLeft),
		LifetimeRemaining:   clampZero(lifetimeLeft),
	}

	if inactivityLeft < lifetimeLeft {
		v.NextCause = CauseInactivity
	} else {
		v.NextCause = CauseLifetime
	}

	switch {
	case idle > p.InactivityTimeout:
		v.Cause = CauseInactivity
	case now.After(s.ExpiresAt):
		v.Cause = CauseLifetime
	default:
		v.Live = true
	}
	return v
}

func clampZero(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
