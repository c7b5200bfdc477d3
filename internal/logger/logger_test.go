package logger

import (
	"bytes"
	"strings"
	"testing"
)

// TestLevelFiltering verifies messages below the configured level are
// dropped.
func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warnf("warn %d", 3)
	Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("below-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "warn 3") || !strings.Contains(out, "error 4") {
		t.Errorf("at-level messages missing: %q", out)
	}
}

// TestLineFormat verifies the timestamped, tagged line shape.
func TestLineFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)

	Infof("hello %s", "world")

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "[") {
		t.Errorf("missing timestamp prefix: %q", line)
	}
	if !strings.Contains(line, "INFO hello world") {
		t.Errorf("unexpected line: %q", line)
	}
}
