package operators

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sessiond/cmd/security/password"
)

const testPassword = "correct horse battery staple"

func testPW() password.Config {
	return password.DefaultConfig().WithCost(8*1024, 1, 1)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func mustHash(t *testing.T) string {
	t.Helper()
	h, err := testPW().Hash(testPassword)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return h
}

func fixture(hash string) string {
	return fmt.Sprintf(`
operators:
  - id: op_admin
    email: " Alice@Example.com "
    name: Alice
    role: Admin
    permissions: [sessions:read, sessions:revoke]
    password_hash: %[1]q
  - id: op_user
    email: bob@example.com
    name: Bob
    password_hash: %[1]q
  - id: op_gone
    email: carol@example.com
    status: suspended
    password_hash: %[1]q
`, hash)
}

func TestParse_NormalizesAndDefaults(t *testing.T) {
	d, err := Parse([]byte(fixture(mustHash(t))), testPW(), discard())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("len=%d want 3", d.Len())
	}

	admin, ok := d.Lookup("op_admin")
	if !ok {
		t.Fatalf("op_admin missing")
	}
	if admin.Email != "alice@example.com" || admin.Role != RoleAdmin || admin.Status != StatusActive {
		t.Fatalf("admin=%+v", admin)
	}

	bob, _ := d.Lookup("op_user")
	if bob.Role != RoleUser {
		t.Fatalf("default role=%q want user", bob.Role)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "operators: [\n"},
		{"missing id", "operators:\n  - email: a@b.c\n    password_hash: x\n"},
		{"bad email", "operators:\n  - id: a\n    email: nope\n    password_hash: x\n"},
		{"missing hash", "operators:\n  - id: a\n    email: a@b.c\n"},
		{"unknown status", "operators:\n  - id: a\n    email: a@b.c\n    status: banned\n    password_hash: x\n"},
		{"duplicate id", "operators:\n  - id: a\n    email: a@b.c\n    password_hash: x\n  - id: a\n    email: b@b.c\n    password_hash: x\n"},
		{"duplicate email", "operators:\n  - id: a\n    email: a@b.c\n    password_hash: x\n  - id: b\n    email: A@B.C\n    password_hash: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc), testPW(), discard()); !errors.Is(err, ErrInvalidFile) {
				t.Fatalf("err=%v want ErrInvalidFile", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	d, err := Parse([]byte(fixture(mustHash(t))), testPW(), discard())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := context.Background()

	op, err := d.Authenticate(ctx, "ALICE@example.com", testPassword)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if op.ID != "op_admin" || len(op.Permissions) != 2 {
		t.Fatalf("op=%+v", op)
	}

	if _, err := d.Authenticate(ctx, "alice@example.com", "wrong password!!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err=%v", err)
	}
	if _, err := d.Authenticate(ctx, "nobody@example.com", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err=%v", err)
	}

	op, err = d.Authenticate(ctx, "carol@example.com", testPassword)
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("suspended err=%v want ErrAccountDisabled", err)
	}
	if op.ID != "op_gone" {
		t.Fatalf("disabled operator should still be identified for auditing: %+v", op)
	}
	if _, err := d.Authenticate(ctx, "carol@example.com", "nope nope nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("disabled + wrong password must not reveal status: %v", err)
	}
}

func TestAuthenticate_CorruptHash(t *testing.T) {
	doc := "operators:\n  - id: a\n    email: a@b.c\n    password_hash: not-a-hash\n"
	d, err := Parse([]byte(doc), testPW(), discard())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := d.Authenticate(context.Background(), "a@b.c", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err=%v want ErrInvalidCredentials", err)
	}
}

func TestLoadAndReload(t *testing.T) {
	hash := mustHash(t)
	path := filepath.Join(t.TempDir(), "operators.yaml")
	if err := os.WriteFile(path, []byte(fixture(hash)), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	d, err := Load(path, testPW(), discard())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("len=%d want 3", d.Len())
	}

	// A broken file keeps the previous directory.
	if err := os.WriteFile(path, []byte("operators: ["), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if d.Len() != 3 {
		t.Fatalf("failed reload changed the directory")
	}

	trimmed := strings.SplitN(fixture(hash), "  - id: op_user", 2)[0]
	if err := os.WriteFile(path, []byte(trimmed), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("len=%d want 1", d.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), testPW(), discard()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
