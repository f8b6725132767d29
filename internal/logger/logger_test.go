package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestInitWriter_EmitsServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "indapi", slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("visible", "n", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "indapi" || entry["msg"] != "visible" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No request ID set
	if rid := RequestID(ctx); rid != "" {
		t.Errorf("expected empty request id, got %q", rid)
	}

	// Set and retrieve
	ctx = WithRequestID(ctx, "req-123")
	if rid := RequestID(ctx); rid != "req-123" {
		t.Errorf("expected 'req-123', got %q", rid)
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == b {
		t.Errorf("expected distinct ids, got %s twice", a)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a UUID, got %s: %v", a, err)
	}
}

func TestLogWithRequest(t *testing.T) {
	ctx := context.Background()

	// No request ID
	attrs := LogWithRequest(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs when no request id, got %v", attrs)
	}

	ctx = WithRequestID(ctx, "abc-123")
	attrs = LogWithRequest(ctx)
	if len(attrs) != 1 {
		t.Fatalf("expected one attr with request id set, got %v", attrs)
	}
}
