package session

import (
	"context"
	"sync"
	"time"
)

// SweepOnce evicts every session that is dead at a single instant and returns
// how many were removed. It holds one shard lock at a time, so concurrent
// per-id operations on other shards proceed while it runs.
func (m *Manager) SweepOnce() (n int) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("sweeper.panic", "panic", r)
		}
	}()

	now := m.now()
	var inactivity, lifetime int
	n = m.store.Scan(func(s *Session) bool {
		v := m.policy.Evaluate(s, now)
		if v.Live {
			return false
		}
		if v.Cause == CauseLifetime {
			lifetime++
		} else {
			inactivity++
		}
		return true
	})

	elapsed := time.Since(start)
	for i := 0; i < inactivity; i++ {
		m.obs.SessionExpired(CauseInactivity)
	}
	for i := 0; i < lifetime; i++ {
		m.obs.SessionExpired(CauseLifetime)
	}
	m.obs.SessionsSwept(n, elapsed)

	if n == 0 {
		m.log.Debug("sweeper.idle", "elapsed", elapsed.String())
		return 0
	}
	m.log.Info("sweeper.evicted",
		"count", n,
		"inactivity", inactivity,
		"lifetime", lifetime,
		"elapsed", elapsed.String(),
	)
	m.emit(ActionSweepCompleted, "", map[string]any{
		"count":      n,
		"inactivity": inactivity,
		"lifetime":   lifetime,
	})
	return n
}

// Sweeper runs Manager.SweepOnce on a fixed interval until stopped.
type Sweeper struct {
	m        *Manager
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewSweeper returns a Sweeper ticking at the manager's CleanupInterval.
func NewSweeper(m *Manager) *Sweeper {
	return &Sweeper{m: m, interval: m.cfg.CleanupInterval}
}

// Start launches the background loop. It returns immediately; calling it on a
// running Sweeper is a no-op. The loop also exits when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	s.m.log.Info("sweeper.start", "interval", s.interval.String())
	go s.loop(ctx, s.done)
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.m.SweepOnce()
		}
	}
}

// Stop halts the loop and waits for it to exit. It is idempotent; once it
// returns no further sweep will begin.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done
	s.m.log.Info("sweeper.stop")
}
