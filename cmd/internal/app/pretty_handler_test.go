package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func stripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func TestPrettyHandler_PlainLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false))
	log.With("component", "http").Info("http.request",
		"method", "post",
		"path", "/auth/login",
		"status", 401,
		"duration_ms", int64(12),
		"user_agent", "curl/8.0 test",
	)

	line := buf.String()
	for _, want := range []string{
		"lvl=[INFO]",
		"msg=http.request",
		"component=http",
		"method=POST",
		"path=/auth/login",
		"status=401",
		"duration=12ms",
		`user_agent="curl/8.0 test"`,
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("uncolored handler emitted escapes: %q", line)
	}
}

func TestPrettyHandler_ColorAndLevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, true))
	log.Info("dropped")
	log.Error("sweeper.panic", "status", 503)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record passed a warn filter: %q", out)
	}
	if !strings.Contains(out, ansiRed+"[ERROR]"+ansiReset) {
		t.Fatalf("missing colored level: %q", out)
	}
	if got := stripANSI(out); !strings.Contains(got, "status=503") {
		t.Fatalf("stripped line %q missing status", got)
	}
}

func TestPrettyHandler_Groups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false))
	log.WithGroup("audit").Info("x", slog.Group("queue", "dropped", 3))

	if !strings.Contains(buf.String(), "audit.queue.dropped=3") {
		t.Fatalf("group keys not joined: %q", buf.String())
	}
}
