package session

import (
	"context"
	"testing"
	"time"
)

func TestSweepOnce_EvictsOnlyDead(t *testing.T) {
	m, clk, sink := newTestManager(t)

	mustCreate(t, m, "alice")
	active := mustCreate(t, m, "alice")

	clk.Advance(30 * time.Minute)
	if _, err := m.GetSession(active); err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	clk.Advance(20 * time.Minute)

	if n := m.SweepOnce(); n != 1 {
		t.Fatalf("swept=%d want 1", n)
	}
	if m.store.Len() != 1 {
		t.Fatalf("store len=%d want 1", m.store.Len())
	}
	if _, err := m.GetSession(active); err != nil {
		t.Fatalf("active session swept: %v", err)
	}

	sweeps := sink.byAction(ActionSweepCompleted)
	if len(sweeps) != 1 {
		t.Fatalf("sweep audit count=%d want 1", len(sweeps))
	}
	if sweeps[0].details["count"] != 1 || sweeps[0].details["inactivity"] != 1 || sweeps[0].details["lifetime"] != 0 {
		t.Fatalf("sweep audit details=%v", sweeps[0].details)
	}

	if n := m.SweepOnce(); n != 0 {
		t.Fatalf("second sweep=%d want 0", n)
	}
	if got := len(sink.byAction(ActionSweepCompleted)); got != 1 {
		t.Fatalf("an empty sweep should not be audited, got %d events", got)
	}
}

func TestSweepOnce_LifetimeCause(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InactivityTimeout = time.Hour
	cfg.MaxLifetime = time.Hour
	clk := newFakeClock()
	sink := &recordingSink{}
	m, err := NewManager(cfg, discardLogger(), WithClock(clk.Now), WithAuditSink(sink))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	id := mustCreate(t, m, "alice")

	clk.Advance(50 * time.Minute)
	if _, err := m.GetSession(id); err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	clk.Advance(20 * time.Minute)

	if n := m.SweepOnce(); n != 1 {
		t.Fatalf("swept=%d want 1", n)
	}
	sweeps := sink.byAction(ActionSweepCompleted)
	if len(sweeps) != 1 || sweeps[0].details["lifetime"] != 1 || sweeps[0].details["inactivity"] != 0 {
		t.Fatalf("sweep audit=%+v", sweeps)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CleanupInterval = 5 * time.Millisecond
	clk := newFakeClock()
	m, err := NewManager(cfg, discardLogger(), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	mustCreate(t, m, "alice")
	clk.Advance(time.Hour)

	sw := NewSweeper(m)
	sw.Start(context.Background())
	sw.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for m.store.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper did not evict the dead session")
		}
		time.Sleep(time.Millisecond)
	}

	sw.Stop()
	sw.Stop()

	// No sweep runs after Stop returns.
	mustCreate(t, m, "bob")
	clk.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	if m.store.Len() != 1 {
		t.Fatalf("sweep ran after Stop")
	}
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CleanupInterval = time.Millisecond
	m, err := NewManager(cfg, discardLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sw := NewSweeper(m)
	sw.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		sw.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop blocked after context cancel")
	}
}
