package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew_LevelAndService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "WARN", Output: &buf, Service: "bookings"})

	log.Info("dropped")
	log.Warn("kept")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected exactly one JSON record, got %q: %v", buf.String(), err)
	}
	if rec[slog.MessageKey] != "kept" || rec[ServiceKey] != "bookings" {
		t.Errorf("record = %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" error ": slog.LevelError,
		"warn+2":  slog.LevelWarn + 2,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestReconciliation_Tagged(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	log.Reconciliation("Compensation failed", "step", "release_seats")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec[slog.LevelKey] != "ERROR" || rec[ReconciliationKey] != true || rec["step"] != "release_seats" {
		t.Errorf("record = %v", rec)
	}
}
