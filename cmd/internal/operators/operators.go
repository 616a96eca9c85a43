package operators

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"sessiond/cmd/security/password"

	"gopkg.in/yaml.v3"
)

// Operator statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Operator is one entry of the operators file.
type Operator struct {
	ID           string   `yaml:"id"`
	Email        string   `yaml:"email"`
	Name         string   `yaml:"name"`
	Role         string   `yaml:"role"`
	Status       string   `yaml:"status"`
	Permissions  []string `yaml:"permissions"`
	PasswordHash string   `yaml:"password_hash"`
}

// Disabled reports whether the operator may not hold sessions.
func (o Operator) Disabled() bool {
	return o.Status == StatusInactive || o.Status == StatusSuspended
}

type document struct {
	Operators []Operator `yaml:"operators"`
}

// Directory is an in-memory, reloadable view of the operators file.
type Directory struct {
	path string
	pw   password.Config
	log  *slog.Logger

	mu      sync.RWMutex
	byEmail map[string]Operator
	byID    map[string]Operator
}

// Load reads and validates path.
func Load(path string, pw password.Config, log *slog.Logger) (*Directory, error) {
	if log == nil {
		log = slog.Default()
	}
	d := &Directory{path: path, pw: pw, log: log.With("component", "operators")}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Parse builds a Directory from YAML bytes. Reload is a no-op on it.
func Parse(data []byte, pw password.Config, log *slog.Logger) (*Directory, error) {
	if log == nil {
		log = slog.Default()
	}
	d := &Directory{pw: pw, log: log.With("component", "operators")}
	byEmail, byID, err := decode(data)
	if err != nil {
		return nil, err
	}
	d.byEmail, d.byID = byEmail, byID
	return d, nil
}

// Reload re-reads the file. On error the previous contents stay in place.
func (d *Directory) Reload() error {
	if d.path == "" {
		return nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("operators file: %w", err)
	}
	byEmail, byID, err := decode(data)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.byEmail, d.byID = byEmail, byID
	d.mu.Unlock()

	d.log.Info("operators.loaded", "path", d.path, "count", len(byID))
	return nil
}

// Len returns the number of operators.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// Lookup returns the operator with the given id.
func (d *Directory) Lookup(id string) (Operator, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	op, ok := d.byID[id]
	return op, ok
}

// Authenticate checks email and plain password.
//
// Unknown emails burn the same Argon2id cost as a wrong password so the two
// cannot be told apart by timing.
func (d *Directory) Authenticate(_ context.Context, email, plain string) (Operator, error) {
	key := normalizeEmail(email)

	d.mu.RLock()
	op, ok := d.byEmail[key]
	d.mu.RUnlock()

	if !ok {
		d.pw.VerifyDummy(plain)
		return Operator{}, ErrInvalidCredentials
	}

	match, err := d.pw.Verify(op.PasswordHash, plain)
	if err != nil {
		d.log.Error("operators.hash.invalid", "operator_id", op.ID, "err", err)
		return Operator{}, ErrInvalidCredentials
	}
	if !match {
		return Operator{}, ErrInvalidCredentials
	}
	if op.Disabled() {
		return op, ErrAccountDisabled
	}
	return op, nil
}

func decode(data []byte) (map[string]Operator, map[string]Operator, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	byEmail := make(map[string]Operator, len(doc.Operators))
	byID := make(map[string]Operator, len(doc.Operators))
	for i, op := range doc.Operators {
		op.ID = strings.TrimSpace(op.ID)
		op.Email = normalizeEmail(op.Email)
		op.Role = strings.ToLower(strings.TrimSpace(op.Role))
		op.Status = strings.ToLower(strings.TrimSpace(op.Status))
		if op.Role == "" {
			op.Role = RoleUser
		}
		if op.Status == "" {
			op.Status = StatusActive
		}

		switch {
		case op.ID == "":
			return nil, nil, fmt.Errorf("%w: entry %d: missing id", ErrInvalidFile, i)
		case op.Email == "" || !strings.Contains(op.Email, "@"):
			return nil, nil, fmt.Errorf("%w: operator %s: invalid email", ErrInvalidFile, op.ID)
		case strings.TrimSpace(op.PasswordHash) == "":
			return nil, nil, fmt.Errorf("%w: operator %s: missing password_hash", ErrInvalidFile, op.ID)
		}
		switch op.Status {
		case StatusActive, StatusInactive, StatusSuspended:
		default:
			return nil, nil, fmt.Errorf("%w: operator %s: unknown status %q", ErrInvalidFile, op.ID, op.Status)
		}
		if _, dup := byID[op.ID]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidFile, op.ID)
		}
		if _, dup := byEmail[op.Email]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate email for operator %s", ErrInvalidFile, op.ID)
		}

		op.Permissions = append([]string(nil), op.Permissions...)
		byEmail[op.Email] = op
		byID[op.ID] = op
	}
	return byEmail, byID, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
