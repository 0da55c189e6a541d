package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewPicksConfigByEnv(t *testing.T) {
	prod, err := New("production")
	if err != nil {
		t.Fatalf("production logger: %v", err)
	}
	if prod.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("production logger should not log debug")
	}

	dev, err := New("development")
	if err != nil {
		t.Fatalf("development logger: %v", err)
	}
	if !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("development logger should log debug")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected a logger")
	}
}
