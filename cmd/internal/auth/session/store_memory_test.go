package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_InsertRejectsDuplicate(t *testing.T) {
	st := NewMemoryStore(4)
	if !st.Insert(Session{ID: "a", UserID: "u"}) {
		t.Fatalf("first insert failed")
	}
	if st.Insert(Session{ID: "a", UserID: "v"}) {
		t.Fatalf("duplicate insert succeeded")
	}
	rec, ok := st.Update("a", func(*Session) bool { return true })
	if !ok || rec.UserID != "u" {
		t.Fatalf("duplicate insert clobbered record: %+v", rec)
	}
}

func TestMemoryStore_UpdateDeletesOnFalse(t *testing.T) {
	st := NewMemoryStore(4)
	st.Insert(Session{ID: "a"})

	if _, ok := st.Update("a", func(*Session) bool { return false }); !ok {
		t.Fatalf("update should find the record")
	}
	if _, ok := st.Update("a", func(*Session) bool { return true }); ok {
		t.Fatalf("record should be gone")
	}
	if st.Len() != 0 {
		t.Fatalf("len=%d want 0", st.Len())
	}
}

func TestMemoryStore_ReplaceOutcomes(t *testing.T) {
	st := NewMemoryStore(8)
	st.Insert(Session{ID: "old", UserID: "u"})
	st.Insert(Session{ID: "taken", UserID: "x"})

	keep := func(old Session) (Session, bool, bool) { return old, true, false }

	if got := st.Replace("missing", "new", keep); got != ReplaceMissing {
		t.Fatalf("missing: outcome=%v", got)
	}
	if got := st.Replace("old", "taken", keep); got != ReplaceConflict {
		t.Fatalf("conflict: outcome=%v", got)
	}
	if got := st.Replace("old", "new", func(Session) (Session, bool, bool) { return Session{}, false, false }); got != ReplaceRejected {
		t.Fatalf("reject: outcome=%v", got)
	}
	if st.Len() != 2 {
		t.Fatalf("reject without drop should keep old; len=%d", st.Len())
	}

	if got := st.Replace("old", "new", keep); got != Replaced {
		t.Fatalf("replace: outcome=%v", got)
	}
	if _, ok := st.Update("old", func(*Session) bool { return true }); ok {
		t.Fatalf("old id survived replace")
	}
	rec, ok := st.Update("new", func(*Session) bool { return true })
	if !ok || rec.ID != "new" || rec.UserID != "u" {
		t.Fatalf("new record=%+v ok=%v", rec, ok)
	}

	if got := st.Replace("new", "newer", func(Session) (Session, bool, bool) { return Session{}, false, true }); got != ReplaceRejected {
		t.Fatalf("drop: outcome=%v", got)
	}
	if st.Len() != 1 {
		t.Fatalf("drop should delete old; len=%d want 1", st.Len())
	}
}

func TestMemoryStore_ReplaceSameShard(t *testing.T) {
	st := NewMemoryStore(1)
	st.Insert(Session{ID: "a"})
	if got := st.Replace("a", "b", func(old Session) (Session, bool, bool) { return old, true, false }); got != Replaced {
		t.Fatalf("outcome=%v", got)
	}
	if st.Len() != 1 {
		t.Fatalf("len=%d want 1", st.Len())
	}
}

func TestMemoryStore_ConcurrentTouchesKeepMax(t *testing.T) {
	st := NewMemoryStore(4)
	st.Insert(Session{ID: "a", LastActivity: t0})

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := t0.Add(time.Duration((i*7)%workers+1) * time.Second)
			st.Update("a", func(s *Session) bool {
				s.touch(at)
				return true
			})
		}(i)
	}
	wg.Wait()

	rec, _ := st.Update("a", func(*Session) bool { return true })
	if want := t0.Add(workers * time.Second); !rec.LastActivity.Equal(want) {
		t.Fatalf("lastActivity=%v want %v", rec.LastActivity, want)
	}
}

func TestMemoryStore_ScanAndRange(t *testing.T) {
	st := NewMemoryStore(16)
	for i := 0; i < 100; i++ {
		user := "even"
		if i%2 == 1 {
			user = "odd"
		}
		st.Insert(Session{ID: fmt.Sprintf("id-%03d", i), UserID: user})
	}

	if n := st.Scan(func(s *Session) bool { return s.UserID == "odd" }); n != 50 {
		t.Fatalf("scan removed %d want 50", n)
	}

	seen := 0
	st.Range(func(s *Session) {
		if s.UserID != "even" {
			t.Errorf("unexpected survivor %+v", s)
		}
		seen++
	})
	if seen != 50 || st.Len() != 50 {
		t.Fatalf("seen=%d len=%d want 50", seen, st.Len())
	}
}

func TestMemoryStore_DefaultShards(t *testing.T) {
	if got := len(NewMemoryStore(0).shards); got != DefaultShardCount {
		t.Fatalf("shards=%d want %d", got, DefaultShardCount)
	}
}
