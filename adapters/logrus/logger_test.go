package exportlogrus

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOptions(&buf, "info", true)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.WithField("component", "runner").Infof("saved %s", "a.pdf")
	logger.Debugf("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one entry at info level, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["msg"] != "saved a.pdf" || entry["component"] != "runner" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestLogger_InvalidLevel(t *testing.T) {
	if _, err := NewWithOptions(nil, "loud", false); err == nil {
		t.Fatalf("expected invalid level error")
	}
}
