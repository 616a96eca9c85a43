package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// execer is the subset of *pgxpool.Pool used by PostgresWriter.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const auditColumns = 5

// Schema creates the audit table. It is idempotent.
const Schema = `
CREATE SCHEMA IF NOT EXISTS sessiond;
CREATE TABLE IF NOT EXISTS sessiond.audit_log (
	id         text PRIMARY KEY,
	user_id    text NULL,
	action     text NOT NULL,
	created_at timestamptz NOT NULL,
	meta       jsonb NULL
);
CREATE INDEX IF NOT EXISTS audit_log_user_created_idx
	ON sessiond.audit_log (user_id, created_at DESC);
`

// PostgresWriter inserts events into sessiond.audit_log, one statement per batch.
type PostgresWriter struct {
	db execer
}

// NewPostgresWriter returns a writer backed by db (typically a *pgxpool.Pool).
func NewPostgresWriter(db execer) *PostgresWriter {
	return &PostgresWriter{db: db}
}

// EnsureSchema applies Schema.
func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	if _, err := w.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("audit schema: %w", err)
	}
	return nil
}

// Write implements Writer. Rows whose id already exists are skipped, so a
// retried batch that partially landed does not fail again.
func (w *PostgresWriter) Write(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO sessiond.audit_log (id, user_id, action, created_at, meta) VALUES ")
	args := make([]any, 0, len(events)*auditColumns)
	for i, ev := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * auditColumns
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d::jsonb)", n+1, n+2, n+3, n+4, n+5)

		meta, err := metaJSON(ev.Details)
		if err != nil {
			return fmt.Errorf("audit meta %s: %w", ev.Action, err)
		}
		args = append(args, ev.ID, nullIfEmpty(ev.UserID), ev.Action, ev.CreatedAt, meta)
	}
	sb.WriteString(" ON CONFLICT (id) DO NOTHING")

	if _, err := w.db.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}
	return nil
}

func metaJSON(details map[string]any) (*string, error) {
	if len(details) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func nullIfEmpty(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
