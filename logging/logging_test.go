package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"", InfoLevel, false},
		{"WARNING", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWriterLoggerFiltersAndSortsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)
	logger.SetLevel(WarnLevel)

	logger.Info("hidden")
	logger.WithFields(Fields{"b": 2, "a": 1}).Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown a=1 b=2") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestContextFieldsReachLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)

	ctx := ContextWithFields(context.Background(), Fields{"request_id": "abc"})
	logger.WithContext(ctx).Info("handled")

	if !strings.Contains(buf.String(), "request_id=abc") {
		t.Fatalf("context field missing: %q", buf.String())
	}
}

func TestZapLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLoggerWithSync(zapcore.AddSync(&buf), InfoLevel)

	logger.Debug("dropped")
	logger.WithFields(Fields{"component": "test"}).Info("kept", Fields{"n": 3})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["msg"] != "kept" || entry["component"] != "test" || entry["n"] != float64(3) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New("xml", InfoLevel); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
