package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewCore_JSON(t *testing.T) {
	var buf bytes.Buffer
	core, err := newCore(Options{Level: "debug"}, zapcore.AddSync(&buf))
	if err != nil {
		t.Fatalf("newCore: %v", err)
	}
	zap.New(core).Debug("scan field", zap.String("field", "seat_number"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", buf.String())
	}
	if entry["msg"] != "scan field" || entry["field"] != "seat_number" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Errorf("entry has no timestamp key: %v", entry)
	}
}

func TestNewCore_Level(t *testing.T) {
	var buf bytes.Buffer
	core, err := newCore(Options{Level: "warn", Format: "console"}, zapcore.AddSync(&buf))
	if err != nil {
		t.Fatalf("newCore: %v", err)
	}
	log := zap.New(core)
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
	log.Warn("kept")
	if !bytes.Contains(buf.Bytes(), []byte("WARN")) {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestNewCore_Invalid(t *testing.T) {
	if _, err := newCore(Options{Level: "loud"}, zapcore.AddSync(&bytes.Buffer{})); err == nil {
		t.Error("expected error for bad level")
	}
	if _, err := newCore(Options{Format: "xml"}, zapcore.AddSync(&bytes.Buffer{})); err == nil {
		t.Error("expected error for bad format")
	}
}

func TestNew_RotatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	opts := DefaultOptions()
	opts.Directory = dir

	log, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("decoded", zap.String("pnr", "ABC123"))
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, "bcbp.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(b, []byte(`"pnr":"ABC123"`)) {
		t.Errorf("log file = %q", b)
	}
}
