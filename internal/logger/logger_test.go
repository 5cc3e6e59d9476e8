package logger

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{"api_key", "abc", "path", "/tmp/x", "Authorization", "Bearer y", "dangling"})
	want := []interface{}{"api_key", "[REDACTED]", "path", "/tmp/x", "Authorization", "[REDACTED]", "dangling"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("sanitizeKVs = %v, want %v", got, want)
	}
}

func TestBufferKeepsNewestLines(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		fmt.Fprintf(b, "line %d\n", i)
	}
	got := b.Lines()
	if strings.Join(got, ",") != "line 2,line 3,line 4" {
		t.Errorf("Lines() = %v", got)
	}
}

func TestNewWithBufferTeesEntries(t *testing.T) {
	log, buf, err := NewWithBuffer("dev", 10)
	if err != nil {
		t.Fatal(err)
	}
	log.With("component", "Test").Info("splice finished", "secret", "hunter2", "job", "j1")
	log.Debug("below buffer level")

	lines := buf.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 buffered line, got %v", lines)
	}
	line := lines[0]
	if !strings.Contains(line, "splice finished") || !strings.Contains(line, "j1") {
		t.Errorf("entry missing from %q", line)
	}
	if strings.Contains(line, "hunter2") {
		t.Errorf("secret leaked into %q", line)
	}
}

func TestLevelByMode(t *testing.T) {
	prod, err := New("prod")
	if err != nil {
		t.Fatal(err)
	}
	if prod.SugaredLogger.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("production mode must not log debug entries")
	}
	if !prod.SugaredLogger.Desugar().Core().Enabled(zapcore.InfoLevel) {
		t.Error("production mode must log info entries")
	}

	dev, err := New("dev")
	if err != nil {
		t.Fatal(err)
	}
	if !dev.SugaredLogger.Desugar().Core().Enabled(zapcore.DebugLevel) {
		t.Error("dev mode should log debug entries")
	}
}
