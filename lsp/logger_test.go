package lsp

import (
	"log/slog"
	"sync"
	"testing"
)

// mockLogger records every call so tests can assert on logging behavior.
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (l *mockLogger) log(level, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *mockLogger) Debug(msg string, args ...any) { l.log("debug", msg, args...) }
func (l *mockLogger) Info(msg string, args ...any)  { l.log("info", msg, args...) }
func (l *mockLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args...) }
func (l *mockLogger) Error(msg string, args ...any) { l.log("error", msg, args...) }

func (l *mockLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

func TestDefaultLogger(t *testing.T) {
	// *slog.Logger satisfies Logger directly; the default is slog's default.
	var _ Logger = slog.Default()

	logger := defaultLogger()
	if logger == nil {
		t.Fatal("defaultLogger returned nil")
	}
	if logger != slog.Default() {
		t.Error("defaultLogger did not return slog.Default()")
	}
}

func TestLogger_CustomImplementation(t *testing.T) {
	mock := &mockLogger{}
	var logger Logger = mock

	logger.Debug("d", "k", 1)
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	for _, level := range []string{"debug", "info", "warn", "error"} {
		if got := len(mock.byLevel(level)); got != 1 {
			t.Errorf("%s entries = %d, want 1", level, got)
		}
	}
	if got := mock.byLevel("debug")[0]; got.msg != "d" || len(got.args) != 2 {
		t.Errorf("debug entry = %+v, want msg 'd' with 2 args", got)
	}
}
