package session

import (
	"errors"
	"testing"
)

func TestRevokeSession_Idempotent(t *testing.T) {
	m, _, sink := newTestManager(t)
	id := mustCreate(t, m, "alice")

	if !m.RevokeSession(id) {
		t.Fatalf("first revoke should report removal")
	}
	if m.RevokeSession(id) {
		t.Fatalf("second revoke should report nothing removed")
	}
	if m.RevokeSession("") {
		t.Fatalf("empty id should report nothing removed")
	}
	if _, err := m.GetSession(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoked session still resolves: %v", err)
	}

	revoked := sink.byAction(ActionRevoked)
	if len(revoked) != 1 || revoked[0].userID != "alice" {
		t.Fatalf("revoked audit=%+v", revoked)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	m, _, sink := newTestManager(t)
	for i := 0; i < 3; i++ {
		mustCreate(t, m, "alice")
	}
	bob := mustCreate(t, m, "bob")

	if n := m.RevokeAllForUser("alice"); n != 3 {
		t.Fatalf("revoked=%d want 3", n)
	}
	if got := len(m.ListSessionsForUser("alice")); got != 0 {
		t.Fatalf("alice still has %d sessions", got)
	}
	if _, err := m.GetSession(bob); err != nil {
		t.Fatalf("bob's session was touched: %v", err)
	}
	if n := m.RevokeAllForUser("alice"); n != 0 {
		t.Fatalf("second revoke-all=%d want 0", n)
	}
	if n := m.RevokeAllForUser("  "); n != 0 {
		t.Fatalf("blank user revoke-all=%d want 0", n)
	}

	all := sink.byAction(ActionRevokedAll)
	if len(all) != 2 || all[0].details["count"] != 3 || all[1].details["count"] != 0 {
		t.Fatalf("revoked_all audit=%+v", all)
	}
}

func TestRevokeOthersForUser(t *testing.T) {
	m, _, sink := newTestManager(t)
	keep := mustCreate(t, m, "alice")
	mustCreate(t, m, "alice")
	mustCreate(t, m, "alice")
	bob := mustCreate(t, m, "bob")

	if n := m.RevokeOthersForUser("alice", keep); n != 2 {
		t.Fatalf("revoked=%d want 2", n)
	}
	if _, err := m.GetSession(keep); err != nil {
		t.Fatalf("kept session revoked: %v", err)
	}
	if _, err := m.GetSession(bob); err != nil {
		t.Fatalf("other user's session revoked: %v", err)
	}

	others := sink.byAction(ActionRevokedOthers)
	if len(others) != 1 || others[0].details["count"] != 2 {
		t.Fatalf("revoked_others audit=%+v", others)
	}
}

func TestRevokeOthersForUser_ForeignKeepID(t *testing.T) {
	m, _, _ := newTestManager(t)
	mustCreate(t, m, "alice")
	mustCreate(t, m, "alice")
	bob := mustCreate(t, m, "bob")

	if n := m.RevokeOthersForUser("alice", bob); n != 2 {
		t.Fatalf("revoked=%d want 2", n)
	}
	if _, err := m.GetSession(bob); err != nil {
		t.Fatalf("bob's session revoked: %v", err)
	}
}
