// Package logger is the process-wide structured logger. It is backed by zap
// and carries per-request fields through context.Context.
package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var (
	mu     sync.RWMutex
	global = zap.NewNop().Sugar()
)

// Init replaces the process logger. Level is one of debug, info, warn, error.
func Init(level string, development bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	Set(l)
	return nil
}

// Set installs l as the process logger.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l.Sugar()
}

// With returns a context whose log lines carry the given key/value pairs.
func With(ctx context.Context, keysAndValues ...any) context.Context {
	return context.WithValue(ctx, ctxKey{}, from(ctx).With(keysAndValues...))
}

func from(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok {
			return l
		}
	}
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func Debugf(ctx context.Context, format string, args ...any) {
	from(ctx).Debugf(format, args...)
}

func Infof(ctx context.Context, format string, args ...any) {
	from(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...any) {
	from(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	from(ctx).Errorf(format, args...)
}

func Error(ctx context.Context, msg string) {
	from(ctx).Error(msg)
}

// Fatal logs err and exits the process.
func Fatal(ctx context.Context, err error) {
	from(ctx).Fatal(err)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = from(context.Background()).Sync()
}
