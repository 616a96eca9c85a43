package audit

import (
	"context"
	"log/slog"
)

// Writer persists a batch of events. It may be called with the same events
// again after a failure.
type Writer interface {
	Write(ctx context.Context, events []Event) error
}

// LogWriter writes events as structured log lines. It never fails.
type LogWriter struct {
	log *slog.Logger
}

// NewLogWriter returns a LogWriter on log (slog.Default when nil).
func NewLogWriter(log *slog.Logger) *LogWriter {
	if log == nil {
		log = slog.Default()
	}
	return &LogWriter{log: log.With("component", "audit")}
}

// Write implements Writer.
func (w *LogWriter) Write(ctx context.Context, events []Event) error {
	for _, ev := range events {
		attrs := []slog.Attr{
			slog.String("audit_id", ev.ID),
			slog.String("action", ev.Action),
			slog.Time("at", ev.CreatedAt),
		}
		if ev.UserID != "" {
			attrs = append(attrs, slog.String("user_id", ev.UserID))
		}
		if len(ev.Details) > 0 {
			attrs = append(attrs, slog.Any("details", ev.Details))
		}
		w.log.LogAttrs(ctx, slog.LevelInfo, "audit.event", attrs...)
	}
	return nil
}
