package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Component: ComponentExpense})

	logger.LogError(context.Background(), "Create failed", errors.New("disk full"), OpCreate, FieldExpenseID, "e1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	want := map[string]string{
		"level":         "ERROR",
		FieldComponent:  ComponentExpense,
		FieldError:      "disk full",
		FieldOperation:  OpCreate,
		FieldExpenseID:  "e1",
		slog.MessageKey: "Create failed",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: slog.LevelWarn}).WithComponent(ComponentHTTP)

	ctx := NewContext(context.Background(), logger)
	if got := FromContext(ctx); got != logger || got.Component() != ComponentHTTP {
		t.Fatalf("FromContext returned %+v", got)
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("fallback component = %q", got.Component())
	}

	FromContext(ctx).Info("dropped")
	FromContext(ctx).Warn("kept")
	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("level filtering output %q", out)
	}
}

func TestStatusLevel(t *testing.T) {
	tests := map[int]slog.Level{200: slog.LevelInfo, 303: slog.LevelInfo, 404: slog.LevelWarn, 429: slog.LevelWarn, 503: slog.LevelError}
	for code, want := range tests {
		if got := StatusLevel(code); got != want {
			t.Errorf("StatusLevel(%d) = %v, want %v", code, got, want)
		}
	}
}
