package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	original := Logger()
	ReplaceLogger(slog.New(newHandler(buf)))
	t.Cleanup(func() {
		ReplaceLogger(original)
	})
	return buf
}

func TestInfoProducesLogfmtWithTimestamp(t *testing.T) {
	buf := withCapturedLogger(t)

	Info(context.Background(), "hello", "recipe", "test")

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatalf("expected log output, got empty string")
	}
	for _, fragment := range []string{"ts=", "level=info", "msg=hello", "recipe=test"} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("expected %q in log line, got %q", fragment, line)
		}
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	buf := withCapturedLogger(t)

	if err := SetLevel("info"); err != nil {
		t.Fatalf("SetLevel returned error: %v", err)
	}
	Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug output to be suppressed, got %q", buf.String())
	}

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := SetLevel("info"); err != nil {
			t.Fatalf("restore level: %v", err)
		}
	})
	Debug(context.Background(), "visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("expected debug output after lowering level, got %q", buf.String())
	}
}

func TestSetLevelRejectsUnknownValue(t *testing.T) {
	if err := SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNilContextFallsBack(t *testing.T) {
	buf := withCapturedLogger(t)

	Error(nil, "boom", "cause", "test") //nolint:staticcheck // exercising nil ctx fallback
	if !strings.Contains(buf.String(), "msg=boom") {
		t.Fatalf("expected output with nil context, got %q", buf.String())
	}
}
