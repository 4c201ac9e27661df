package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandleWritesToFileSink(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, false)
	log := slog.New(h)

	log.Info("boot", "ram", 67108864)

	out := buf.String()
	if !strings.Contains(out, "INFO:") {
		t.Errorf("expected level prefix in output: %q", out)
	}
	if !strings.Contains(out, "boot") {
		t.Errorf("expected message in output: %q", out)
	}
}

func TestNilFileSinkDoesNotPanic(t *testing.T) {
	h := NewHandler(nil, nil, false)
	log := slog.New(h)
	log.Warn("no file configured")
}
