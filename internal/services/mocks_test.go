package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// mockEngine records statements and fails the statement of kind failOn.
type mockEngine struct {
	executed []hiveseed.Statement
	failOn   hiveseed.StatementKind
	failErr  error
	closed   bool
}

func (m *mockEngine) Execute(_ context.Context, stmt hiveseed.Statement) error {
	m.executed = append(m.executed, stmt)
	if m.failErr != nil && stmt.Kind() == m.failOn {
		return m.failErr
	}
	return nil
}

func (m *mockEngine) Close() error {
	m.closed = true
	return nil
}

func (m *mockEngine) kinds() []hiveseed.StatementKind {
	out := make([]hiveseed.StatementKind, len(m.executed))
	for i, s := range m.executed {
		out[i] = s.Kind()
	}
	return out
}

// countingEngine adds a row counter to mockEngine.
type countingEngine struct {
	mockEngine
	count    int64
	countErr error
}

func (c *countingEngine) CountRows(_ context.Context, _ string) (int64, error) {
	return c.count, c.countErr
}

// recordingLogger keeps every message for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) record(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Verbose(format string, args ...interface{}) { l.record("VERBOSE", format, args...) }
func (l *recordingLogger) Info(format string, args ...interface{})    { l.record("INFO", format, args...) }
func (l *recordingLogger) Step(format string, args ...interface{})    { l.record("STEP", format, args...) }
func (l *recordingLogger) Error(format string, args ...interface{})   { l.record("ERROR", format, args...) }

func (l *recordingLogger) withPrefix(prefix string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, line := range l.lines {
		if rest, ok := strings.CutPrefix(line, prefix+" "); ok {
			out = append(out, rest)
		}
	}
	return out
}
