package chervil

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger receives script output from the print and debug builtins.
type Logger interface {
	Log(values ...interface{})
	LogLine(values ...interface{})
}

// WriterLogger writes space-separated values to an io.Writer.
type WriterLogger struct {
	w io.Writer
}

// NewWriterLogger creates a logger over any writer.
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w}
}

func (l *WriterLogger) Log(values ...interface{}) {
	for i, v := range values {
		if i > 0 {
			fmt.Fprint(l.w, " ")
		}
		fmt.Fprint(l.w, v)
	}
}

func (l *WriterLogger) LogLine(values ...interface{}) {
	l.Log(values...)
	fmt.Fprintln(l.w)
}

// DefaultLogger writes to stdout.
var DefaultLogger Logger = NewWriterLogger(os.Stdout)

// BufferedLogger collects output lines in memory. It is safe for
// concurrent use, so one buffer can back several engines under test.
type BufferedLogger struct {
	mu      sync.Mutex
	lines   []string
	partial strings.Builder
}

// NewBufferedLogger creates an empty buffer.
func NewBufferedLogger() *BufferedLogger {
	return &BufferedLogger{}
}

func (l *BufferedLogger) Log(values ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(values)
}

func (l *BufferedLogger) LogLine(values ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.write(values)
	l.lines = append(l.lines, l.partial.String())
	l.partial.Reset()
}

func (l *BufferedLogger) write(values []interface{}) {
	for i, v := range values {
		if i > 0 {
			l.partial.WriteString(" ")
		}
		fmt.Fprint(&l.partial, v)
	}
}

// Lines returns the completed output lines.
func (l *BufferedLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// String returns all completed lines joined by newlines.
func (l *BufferedLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

// Reset discards buffered output.
func (l *BufferedLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
	l.partial.Reset()
}
