package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Buffer keeps the most recent log lines in memory for the /api/logs endpoint.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func NewBuffer(max int) *Buffer {
	if max <= 0 {
		max = 1000
	}
	return &Buffer{lines: make([]string, 0, max), max: max}
}

func (b *Buffer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
	return len(p), nil
}

func (b *Buffer) Sync() error { return nil }

// Lines returns a copy of the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// NewWithBuffer builds a logger that also tees every entry, console-encoded, into a Buffer
// holding the last lines entries.
func NewWithBuffer(mode string, lines int) (*Logger, *Buffer, error) {
	buf := NewBuffer(lines)
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	bufCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), buf, zapcore.InfoLevel)

	log, err := New(mode, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, bufCore)
	}))
	if err != nil {
		return nil, nil, err
	}
	return log, buf, nil
}
