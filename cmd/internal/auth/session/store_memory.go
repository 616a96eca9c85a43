package session

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// MemoryStore is the in-process Store.
//
// Records are spread over independently locked shards selected by an xxhash
// of the id, so bulk scans only ever hold one shard lock at a time and never
// stall per-id operations on other shards.
type MemoryStore struct {
	shards []*memShard
}

type memShard struct {
	mu sync.RWMutex
	m  map[string]*Session
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs a MemoryStore with n shards (DefaultShardCount when n <= 0).
func NewMemoryStore(n int) *MemoryStore {
	if n <= 0 {
		n = DefaultShardCount
	}
	shards := make([]*memShard, n)
	for i := range shards {
		shards[i] = &memShard{m: make(map[string]*Session)}
	}
	return &MemoryStore{shards: shards}
}

func (s *MemoryStore) shardIndex(id string) int {
	return int(xxhash.Sum64String(id) % uint64(len(s.shards)))
}

func (s *MemoryStore) shard(id string) *memShard {
	return s.shards[s.shardIndex(id)]
}

// Insert adds rec unless its id is taken.
func (s *MemoryStore) Insert(rec Session) bool {
	sh := s.shard(rec.ID)
	cp := rec.Clone()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.m[rec.ID]; exists {
		return false
	}
	sh.m[rec.ID] = &cp
	return true
}

// Update runs fn under the shard lock.
func (s *MemoryStore) Update(id string, fn func(rec *Session) bool) (Session, bool) {
	sh := s.shard(id)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.m[id]
	if !ok {
		return Session{}, false
	}
	keep := fn(rec)
	out := rec.Clone()
	if !keep {
		delete(sh.m, id)
	}
	return out, true
}

// Replace swaps oldID for newID holding both shard locks.
// Locks are always taken in ascending shard order.
func (s *MemoryStore) Replace(oldID, newID string, fn func(old Session) (Session, bool, bool)) ReplaceOutcome {
	oi, ni := s.shardIndex(oldID), s.shardIndex(newID)
	oldSh, newSh := s.shards[oi], s.shards[ni]

	switch {
	case oi == ni:
		oldSh.mu.Lock()
		defer oldSh.mu.Unlock()
	case oi < ni:
		oldSh.mu.Lock()
		defer oldSh.mu.Unlock()
		newSh.mu.Lock()
		defer newSh.mu.Unlock()
	default:
		newSh.mu.Lock()
		defer newSh.mu.Unlock()
		oldSh.mu.Lock()
		defer oldSh.mu.Unlock()
	}

	old, ok := oldSh.m[oldID]
	if !ok {
		return ReplaceMissing
	}
	if _, taken := newSh.m[newID]; taken {
		return ReplaceConflict
	}

	next, proceed, drop := fn(old.Clone())
	if !proceed {
		if drop {
			delete(oldSh.m, oldID)
		}
		return ReplaceRejected
	}

	next.ID = newID
	cp := next.Clone()
	delete(oldSh.m, oldID)
	newSh.m[newID] = &cp
	return Replaced
}

// Scan deletes matching records shard by shard.
func (s *MemoryStore) Scan(fn func(rec *Session) bool) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, rec := range sh.m {
			if fn(rec) {
				delete(sh.m, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Range visits every record under a read lock, shard by shard.
func (s *MemoryStore) Range(fn func(rec *Session)) {
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.m {
			fn(rec)
		}
		sh.mu.RUnlock()
	}
}

// Len returns the total number of records.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.m)
		sh.mu.RUnlock()
	}
	return n
}
