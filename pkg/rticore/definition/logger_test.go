package definition

import (
	"bytes"
	"strings"
	"testing"
)

func TestToggleDebugGatesDebugOutput(t *testing.T) {
	l := NewLogrusLogger()
	buf := &bytes.Buffer{}
	l.entry.Logger.SetOutput(buf)

	l.Debug("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output before ToggleDebug, got %q", buf.String())
	}

	if got := l.ToggleDebug(true); !got {
		t.Fatalf("expected ToggleDebug(true) to return true")
	}
	l.Debug("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected debug line after ToggleDebug(true), got %q", buf.String())
	}
}

func TestWithFederateTagsEveryEntry(t *testing.T) {
	l := NewLogrusLogger()
	buf := &bytes.Buffer{}
	l.entry.Logger.SetOutput(buf)

	tagged := l.WithFederate("federate-7").(*LogrusLogger)
	tagged.entry.Logger.SetOutput(buf)
	tagged.Info("hello")

	if !strings.Contains(buf.String(), "federate-7") {
		t.Fatalf("expected federate field in output, got %q", buf.String())
	}
}

func TestNopLoggerNeverPanics(t *testing.T) {
	var l Logger = NopLogger{}
	l.Info("x")
	l.Debugf("%d", 1)
	l.ToggleDebug(true)
	l.WithFederate("f1").Warn("y")
}
