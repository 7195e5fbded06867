package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/felixgeelhaar/afm/internal/ports"
)

// ConsoleLogger logs structured messages to the console through a slog
// text or JSON handler.
type ConsoleLogger struct {
	out          io.Writer
	level        *slog.LevelVar
	fields       []ports.Field
	jsonFormat   bool
	includeTime  bool
	includeLevel bool

	once    *sync.Once
	handler *slog.Logger
}

// ConsoleLoggerOption configures the console logger.
type ConsoleLoggerOption func(*ConsoleLogger)

// WithOutput sets the output writer (default: os.Stderr).
func WithOutput(w io.Writer) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.out = w
	}
}

// WithLevel sets the minimum log level (default: Info).
func WithLevel(level ports.Level) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.level.Set(toSlogLevel(level))
	}
}

// WithJSONFormat enables JSON output format.
func WithJSONFormat(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.jsonFormat = enabled
	}
}

// WithTimestamp includes timestamp in log entries.
func WithTimestamp(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.includeTime = enabled
	}
}

// WithLevelLabel includes level label in log entries.
func WithLevelLabel(enabled bool) ConsoleLoggerOption {
	return func(l *ConsoleLogger) {
		l.includeLevel = enabled
	}
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(opts ...ConsoleLoggerOption) *ConsoleLogger {
	l := &ConsoleLogger{
		out:          os.Stderr,
		level:        new(slog.LevelVar),
		includeTime:  true,
		includeLevel: true,
		once:         new(sync.Once),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Debug logs a debug message.
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

// Info logs an informational message.
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *ConsoleLogger) Error(ctx context.Context, msg string, fields ...ports.Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

// With returns a new logger with additional fields. The level is shared
// with the parent.
func (l *ConsoleLogger) With(fields ...ports.Field) ports.Logger {
	newFields := make([]ports.Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &ConsoleLogger{
		out:          l.out,
		level:        l.level,
		fields:       newFields,
		jsonFormat:   l.jsonFormat,
		includeTime:  l.includeTime,
		includeLevel: l.includeLevel,
		once:         new(sync.Once),
	}
}

func (l *ConsoleLogger) logger() *slog.Logger {
	l.once.Do(func() {
		opts := &slog.HandlerOptions{
			Level: l.level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if len(groups) > 0 {
					return a
				}
				if a.Key == slog.TimeKey && !l.includeTime {
					return slog.Attr{}
				}
				if a.Key == slog.LevelKey && !l.includeLevel {
					return slog.Attr{}
				}
				return a
			},
		}

		var handler slog.Handler
		if l.jsonFormat {
			handler = slog.NewJSONHandler(l.out, opts)
		} else {
			handler = slog.NewTextHandler(l.out, opts)
		}
		l.handler = slog.New(handler).With(toArgs(l.fields)...)
	})
	return l.handler
}

func (l *ConsoleLogger) log(ctx context.Context, level slog.Level, msg string, fields []ports.Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.logger().Log(ctx, level, msg, toArgs(fields)...)
}

func toArgs(fields []ports.Field) []any {
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			args = append(args, slog.String(f.Key, err.Error()))
			continue
		}
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}

func toSlogLevel(level ports.Level) slog.Level {
	switch level {
	case ports.LevelDebug:
		return slog.LevelDebug
	case ports.LevelWarn:
		return slog.LevelWarn
	case ports.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Ensure ConsoleLogger implements Logger.
var _ ports.Logger = (*ConsoleLogger)(nil)
