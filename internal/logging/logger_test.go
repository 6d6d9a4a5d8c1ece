package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"openfront/engine/internal/config"
)

func TestNewWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.log")
	logger, err := New(config.LoggingConfig{Level: "info", Path: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	logger.With(String("game", "g1")).Info("tick executed", Int("tick", 3))
	logger.Debug("hidden")
	if err := logger.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, `"msg":"tick executed"`) || !strings.Contains(text, `"game":"g1"`) {
		t.Fatalf("unexpected log contents: %s", text)
	}
	if strings.Contains(text, "hidden") {
		t.Fatal("debug entry should be filtered at info level")
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "info", MaxSizeMB: 1}); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := New(config.LoggingConfig{Level: "loud", Path: "x.log", MaxSizeMB: 1}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSetLevelAppliesToDerivedLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := NewObserved(core)
	if err := base.SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if base.Level() != "warn" {
		t.Fatalf("level = %s", base.Level())
	}
	child := base.With(String("component", "nuke"))
	child.Warn("cannot build nuke")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["component"]; got != "nuke" {
		t.Fatalf("missing context field: %v", got)
	}
}

func TestLoggerFromContextFallsBack(t *testing.T) {
	if LoggerFromContext(context.Background()) != L() {
		t.Fatal("expected global logger fallback")
	}
	custom := NewTestLogger()
	ctx := ContextWithLogger(context.Background(), custom)
	if LoggerFromContext(ctx) != custom {
		t.Fatal("expected context logger")
	}
}
