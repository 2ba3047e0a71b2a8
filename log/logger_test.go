package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerCarriesServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("chillerd").WithOutput(&buf)

	logger.Info("child started", map[string]any{"args": []string{"20", "24"}})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["service"] != "chillerd" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry["message"] != "child started" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("test").WithOutput(&buf)

	logger.Debug("d", nil)
	logger.Warn("w", nil)
	logger.Error("e", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for i, level := range []string{"debug", "warn", "error"} {
		if !strings.Contains(lines[i], `"level":"`+level+`"`) {
			t.Errorf("line %d missing level %s: %s", i, level, lines[i])
		}
	}
}

func TestSugaredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("cli").WithOutput(&buf)

	logger.Sugar().Infof("stored params low=%g high=%g", 20.0, 24.0)

	if !strings.Contains(buf.String(), "stored params low=20 high=24") {
		t.Errorf("sugared output = %s", buf.String())
	}
}
