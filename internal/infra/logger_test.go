package infra

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_Formats(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")
	logger.Info("DROPPED")
	logger.Warn("FEED_GAP", slog.String("date", "2024-03-01"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warn line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if rec["msg"] != "FEED_GAP" || rec["date"] != "2024-03-01" {
		t.Errorf("unexpected record: %v", rec)
	}

	buf.Reset()
	newLogger(&buf, "info", "text").Info("SESSION_REPORT", slog.String("status", "traded"))
	if !strings.Contains(buf.String(), "msg=SESSION_REPORT status=traded") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}
