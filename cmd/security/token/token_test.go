package token

import (
	"errors"
	"strings"
	"testing"
)

func TestFingerprint_StableAndShort(t *testing.T) {
	SetFingerprintKey(nil)
	t.Cleanup(func() { SetFingerprintKey(nil) })

	tok := strings.Repeat("ab", 32)
	a := Fingerprint(tok)
	b := Fingerprint(tok)
	if a != b {
		t.Fatalf("not stable: %q vs %q", a, b)
	}
	if len(a) != FingerprintLength {
		t.Fatalf("len=%d want %d", len(a), FingerprintLength)
	}
	if strings.Contains(tok, a) {
		t.Fatalf("fingerprint %q leaks token material", a)
	}
	if a != HashSHA256Hex(tok)[:FingerprintLength] {
		t.Fatalf("unkeyed fingerprint should be sha256 prefix")
	}
	if Fingerprint("") != "" {
		t.Fatalf("empty token should have empty fingerprint")
	}
}

func TestFingerprint_KeyedDiffers(t *testing.T) {
	SetFingerprintKey(nil)
	t.Cleanup(func() { SetFingerprintKey(nil) })

	tok := "0123456789abcdef"
	plain := Fingerprint(tok)

	key := []byte(strings.Repeat("k", 32))
	SetFingerprintKey(key)
	if !HMACEnabled() {
		t.Fatalf("expected HMAC mode")
	}
	keyed := Fingerprint(tok)
	if keyed == plain {
		t.Fatalf("keyed fingerprint should differ from plain")
	}
	if keyed != HashHMACSHA256Hex(tok, key)[:FingerprintLength] {
		t.Fatalf("keyed fingerprint mismatch")
	}

	// The installed key is a copy.
	key[0] = 'x'
	if Fingerprint(tok) != keyed {
		t.Fatalf("caller mutation leaked into installed key")
	}
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("err=%v want ErrHMACKeyMissing", err)
	}

	t.Setenv(HMACEnvKey, "  short  ")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("err=%v want ErrHMACKeyTooShort", err)
	}

	t.Setenv(HMACEnvKey, strings.Repeat("z", 32))
	b, err := HMACKeyFromEnv(32)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(b) != 32 {
		t.Fatalf("len=%d want 32", len(b))
	}
}
