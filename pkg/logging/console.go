package logging

import (
	"context"
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleLogger writes text entries without timestamps to a terminal stream.
// It is what interactive runs use so file paths and failures are visible.
type ConsoleLogger struct {
	mu     *sync.Mutex
	w      io.Writer
	level  Level
	fields Fields
}

// NewConsoleLogger creates a logger on w (stderr when nil)
func NewConsoleLogger(w io.Writer, level Level) *ConsoleLogger {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleLogger{mu: &sync.Mutex{}, w: w, level: level}
}

// Debug logs a debug message
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(DebugLevel, msg, nil, fields)
}

// Info logs an info message
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(InfoLevel, msg, nil, fields)
}

// Warn logs a warning message
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(WarnLevel, msg, nil, fields)
}

// Error logs an error message
func (l *ConsoleLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ErrorLevel, msg, err, fields)
}

// WithFields returns a logger with additional fields
func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	return &ConsoleLogger{mu: l.mu, w: l.w, level: l.level, fields: mergeFields(l.fields, fields)}
}

// Close does nothing; the stream is owned by the caller
func (l *ConsoleLogger) Close() error {
	return nil
}

func (l *ConsoleLogger) log(level Level, msg string, err error, fields Fields) {
	if level < l.level {
		return
	}
	line := formatText(time.Now(), level, msg, err, mergeFields(l.fields, fields), false)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(line)
}
