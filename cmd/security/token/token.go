package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync/atomic"
)

const (
	// HMACEnvKey is the env var name for the fingerprint HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "SESSIOND_TOKEN_HMAC_KEY"

	// FingerprintLength is the number of hex chars kept by Fingerprint.
	FingerprintLength = 12
)

var fingerprintKey atomic.Pointer[[]byte]

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	return CheckHMACKey(os.Getenv(HMACEnvKey), minBytes)
}

// CheckHMACKey trims raw and enforces a minimum byte length.
func CheckHMACKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// SetFingerprintKey installs the process-wide HMAC key used by Fingerprint.
// An empty key restores plain SHA-256 mode.
func SetFingerprintKey(key []byte) {
	if len(key) == 0 {
		fingerprintKey.Store(nil)
		return
	}
	cp := append([]byte(nil), key...)
	fingerprintKey.Store(&cp)
}

// HMACEnabled reports whether Fingerprint is keyed.
func HMACEnabled() bool {
	return fingerprintKey.Load() != nil
}

// Fingerprint returns a short, stable, non-reversible label for a bearer
// token, safe to put in logs and audit records.
// Behavior:
// - If a key was installed with SetFingerprintKey, uses HMAC-SHA256(token, key).
// - Otherwise falls back to SHA-256(token).
func Fingerprint(tok string) string {
	if tok == "" {
		return ""
	}
	var sum string
	if k := fingerprintKey.Load(); k != nil {
		sum = HashHMACSHA256Hex(tok, *k)
	} else {
		sum = HashSHA256Hex(tok)
	}
	return sum[:FingerprintLength]
}
