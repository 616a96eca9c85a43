package session

import "time"

// Profile is the caller-supplied identity payload attached to a session.
//
// The manager treats it as opaque and stores a deep copy, so later changes to
// the caller's value never leak into a live session.
type Profile struct {
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role,omitempty"`
	Status      string   `json:"status,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	cp := p
	if p.Permissions != nil {
		cp.Permissions = append([]string(nil), p.Permissions...)
	}
	return cp
}

// HasPermission reports whether perm was granted to the profile.
func (p Profile) HasPermission(perm string) bool {
	for _, v := range p.Permissions {
		if v == perm {
			return true
		}
	}
	return false
}

// Session is a session record.
//
// Values returned by the Manager are snapshots: mutating them has no effect on
// the stored session.
type Session struct {
	ID           string
	UserID       string
	Profile      Profile
	CreatedAt    time.Time
	LastActivity time.Time
	// ExpiresAt is CreatedAt + MaxLifetime. It is fixed at creation and
	// carried over unchanged by rotation.
	ExpiresAt time.Time
	Metadata  Metadata
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	cp := s
	cp.Profile = s.Profile.Clone()
	cp.Metadata = s.Metadata.Clone()
	return cp
}

// touch advances LastActivity to now, never backwards.
func (s *Session) touch(now time.Time) {
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

// ReplaceOutcome reports what Store.Replace did.
type ReplaceOutcome int

const (
	// Replaced means the old entry was removed and the new one inserted.
	Replaced ReplaceOutcome = iota
	// ReplaceMissing means the old id was not present.
	ReplaceMissing
	// ReplaceRejected means the callback declined; the old entry may have been dropped.
	ReplaceRejected
	// ReplaceConflict means the new id was already present; nothing changed.
	ReplaceConflict
)

// Store is the backing collection of session records.
//
// Implementations must make every method linearizable per id and must not
// hold a lock spanning the whole collection during Scan or Range. Callbacks
// run while the implementation holds the lock that guards the record, so they
// must not call back into the Store.
//
// Records handed to callbacks may be mutated in place only where stated.
// Values returned from the Store must be independent copies.
type Store interface {
	// Insert adds s unless s.ID is already present.
	Insert(s Session) bool

	// Update runs fn on the record stored under id. fn may mutate the record;
	// returning false deletes it. The returned Session is a copy taken after fn.
	Update(id string, fn func(s *Session) (keep bool)) (Session, bool)

	// Replace removes oldID and inserts the record produced by fn under newID
	// as one step: no concurrent reader observes both ids or neither.
	// fn returns (next, true) to proceed, or (_, false) to abort; drop asks the
	// store to delete oldID when aborting.
	Replace(oldID, newID string, fn func(old Session) (next Session, ok bool, drop bool)) ReplaceOutcome

	// Scan visits every record, one lock partition at a time, deleting those
	// for which fn returns true. It returns the number deleted.
	Scan(fn func(s *Session) (remove bool)) int

	// Range visits a read-only view of every record, one lock partition at a time.
	Range(fn func(s *Session))

	// Len returns the number of stored records, live or not.
	Len() int
}
