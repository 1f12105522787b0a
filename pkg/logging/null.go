package logging

import (
	"context"
	"errors"
)

// NullLogger discards everything. Library code receives it when the caller
// passes no logger.
type NullLogger struct{}

// NewNullLogger creates a new null logger
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Debug(ctx context.Context, msg string, fields Fields)            {}
func (l *NullLogger) Info(ctx context.Context, msg string, fields Fields)             {}
func (l *NullLogger) Warn(ctx context.Context, msg string, fields Fields)             {}
func (l *NullLogger) Error(ctx context.Context, msg string, err error, fields Fields) {}
func (l *NullLogger) WithFields(fields Fields) Logger                                 { return l }
func (l *NullLogger) Close() error                                                    { return nil }

// OrNull returns l, or a NullLogger when l is nil
func OrNull(l Logger) Logger {
	if l == nil {
		return NewNullLogger()
	}
	return l
}

// Tee fans every entry out to several loggers
type Tee []Logger

// NewTee drops nil loggers and returns the rest as one Logger
func NewTee(loggers ...Logger) Logger {
	var t Tee
	for _, l := range loggers {
		if l != nil {
			t = append(t, l)
		}
	}
	switch len(t) {
	case 0:
		return NewNullLogger()
	case 1:
		return t[0]
	}
	return t
}

func (t Tee) Debug(ctx context.Context, msg string, fields Fields) {
	for _, l := range t {
		l.Debug(ctx, msg, fields)
	}
}

func (t Tee) Info(ctx context.Context, msg string, fields Fields) {
	for _, l := range t {
		l.Info(ctx, msg, fields)
	}
}

func (t Tee) Warn(ctx context.Context, msg string, fields Fields) {
	for _, l := range t {
		l.Warn(ctx, msg, fields)
	}
}

func (t Tee) Error(ctx context.Context, msg string, err error, fields Fields) {
	for _, l := range t {
		l.Error(ctx, msg, err, fields)
	}
}

func (t Tee) WithFields(fields Fields) Logger {
	out := make(Tee, len(t))
	for i, l := range t {
		out[i] = l.WithFields(fields)
	}
	return out
}

// Close closes every logger and returns the joined errors
func (t Tee) Close() error {
	var errs []error
	for _, l := range t {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
