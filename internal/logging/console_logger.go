package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// ConsoleLogger writes log messages to a writer, stderr by default.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	out     io.Writer
	verbose bool
	color   bool
	mu      sync.Mutex
}

// NewConsoleLogger creates a logger on stderr. Color is enabled when stderr
// is a terminal and NO_COLOR is unset.
// If verbose is false, Verbose() calls are no-ops.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stderr, verbose, ColorEnabled(os.Stderr))
}

// NewConsoleLoggerTo creates a logger on w.
func NewConsoleLoggerTo(w io.Writer, verbose, color bool) *ConsoleLogger {
	return &ConsoleLogger{out: w, verbose: verbose, color: color}
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.write(verboseStyle, "[VERBOSE] ", format, args)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.write(nil, "", format, args)
}

// Step announces a major step as "=== Title ===".
func (l *ConsoleLogger) Step(format string, args ...interface{}) {
	l.write(stepStyle, "", "=== "+format+" ===", args)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.write(errorStyle, "[ERROR] ", format, args)
}

func (l *ConsoleLogger) write(style renderer, prefix, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	msg = prefix + msg
	if l.color && style != nil {
		msg = style.Render(msg)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, msg)
}

var _ hiveseed.Logger = (*ConsoleLogger)(nil)
