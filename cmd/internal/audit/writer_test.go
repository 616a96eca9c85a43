package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestLogWriter_EmitsOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	w := NewLogWriter(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := w.Write(context.Background(), []Event{
		{ID: "01A", Action: "session.created", UserID: "alice", CreatedAt: time.Unix(0, 0).UTC(), Details: map[string]any{"session": "abc"}},
		{ID: "01B", Action: "session.sweep", CreatedAt: time.Unix(0, 0).UTC()},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("lines=%d want 2", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first["msg"] != "audit.event" || first["action"] != "session.created" || first["user_id"] != "alice" {
		t.Fatalf("first line=%v", first)
	}
	if first["component"] != "audit" {
		t.Fatalf("component=%v", first["component"])
	}

	var second map[string]any
	_ = json.Unmarshal(lines[1], &second)
	if _, ok := second["user_id"]; ok {
		t.Fatalf("empty user id should be omitted: %v", second)
	}
}
