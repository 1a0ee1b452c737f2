package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	log, err := New(Config{Level: " DEBUG ", Service: "transcript"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug to be enabled")
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "chatty"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) || !log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info level")
	}
}

func TestNew_Formats(t *testing.T) {
	for _, f := range []string{"", "json", "Console"} {
		if _, err := New(Config{Format: f}); err != nil {
			t.Fatalf("format %q: unexpected error: %v", f, err)
		}
	}
	if _, err := New(Config{Format: "logfmt"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
