// Package session implements sessiond's server-side session authority.
//
// It owns session identity, the dual-timeout expiration policy (sliding
// inactivity window bounded by an absolute lifetime cap), ID rotation at
// privilege boundaries, single and bulk revocation, and background eviction.
//
// Liveness is never stored. Every read path (GetSession, RotateID,
// TimeRemaining, Stats, the sweeper) derives it from timestamps through
// Policy.Evaluate, so they cannot disagree.
//
// Sessions live in memory only. Transport (HTTP, cookies) and audit storage
// are out of scope here; see cmd/internal/auth/api and cmd/internal/audit.
package session
