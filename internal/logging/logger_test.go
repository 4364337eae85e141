package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerDefaultConfig(t *testing.T) {
	logger := NewLogger(nil)
	if logger == nil {
		t.Fatal("NewLogger(nil) returned nil")
	}
}

func TestLoggerIncludesFacilityAndTag(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{
		Level:    LevelDebug,
		Output:   &buf,
		Facility: "user",
		Tag:      "aesdsocket",
	})

	logger.Info("Accepted connection from 127.0.0.1")
	logger.Sync()

	output := buf.String()
	if !strings.Contains(output, "facility") || !strings.Contains(output, "user") {
		t.Errorf("expected facility=user in output, got: %s", output)
	}
	if !strings.Contains(output, "aesdsocket") {
		t.Errorf("expected tag=aesdsocket in output, got: %s", output)
	}
	if !strings.Contains(output, "Accepted connection from 127.0.0.1") {
		t.Errorf("expected message in output, got: %s", output)
	}
}

func TestWithTag(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&Config{Level: LevelDebug, Output: &buf, Facility: "user"})
	device := base.WithTag("aesdchar")

	device.Info("device initialized")
	device.Sync()

	if !strings.Contains(buf.String(), "aesdchar") {
		t.Errorf("expected tag=aesdchar in output, got: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("also should not appear")
	logger.Sync()

	if buf.Len() != 0 {
		t.Errorf("expected no output below configured level, got: %s", buf.String())
	}

	logger.Warn("should appear")
	logger.Sync()
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected warn message in output, got: %s", buf.String())
	}
}

func TestGlobalDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))
	defer SetDefault(NewLogger(nil))

	Info("global info message")
	Default().Sync()

	if !strings.Contains(buf.String(), "global info message") {
		t.Errorf("expected global info message, got: %s", buf.String())
	}
}
