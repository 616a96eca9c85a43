// Package token derives log-safe fingerprints from session bearer tokens.
//
// Raw tokens never leave the session manager; everything that is written to
// logs, metrics labels or the audit trail carries Fingerprint(token) instead.
//
// Modes:
// - Default: SHA-256(token), truncated.
// - Keyed: HMAC-SHA256(token, key) once SetFingerprintKey has been called.
//
// Environment:
//   - SESSIOND_TOKEN_HMAC_KEY: the app layer loads it (min 32 bytes) and
//     installs it at startup.
package token
