// Package observability provides structured logging for miraview.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/masq"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jmylchreest/miraview/internal/config"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	loggerKey contextKey = "logger"
)

// LevelTrace is more verbose than debug. Used for per-slot engine output.
const LevelTrace = slog.Level(-8)

// credentialsInURL matches URLs carrying userinfo, such as database DSNs.
var credentialsInURL = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*://[^/\s:@]+:[^/\s@]+@`)

// NewLogger creates a logger writing to stderr and, when cfg.File is set, to a
// size-rotated log file. The returned closer releases the file.
func NewLogger(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return NewLoggerWithWriter(cfg, os.Stderr), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return NewLoggerWithWriter(cfg, io.MultiWriter(os.Stderr, file)), file, nil
}

// NewLoggerWithWriter creates a new slog.Logger that writes to the provided writer.
func NewLoggerWithWriter(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	redact := masq.New(
		masq.WithFieldName("Password"),
		masq.WithFieldName("DSN"),
		masq.WithFieldPrefix("Secret"),
		masq.WithRegex(credentialsInURL),
	)

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				if cfg.TimeFormat != "" {
					if t, ok := a.Value.Any().(time.Time); ok {
						return slog.String(slog.TimeKey, t.Format(cfg.TimeFormat))
					}
				}
				return a
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
					return slog.String(slog.LevelKey, "TRACE")
				}
				return a
			case slog.SourceKey:
				if src, ok := a.Value.Any().(*slog.Source); ok {
					return slog.String("logpos", shortSource(src))
				}
				return a
			}
			return redact(groups, a)
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// shortSource trims the source path to its last three elements.
func shortSource(src *slog.Source) string {
	parts := strings.Split(filepath.ToSlash(src.File), "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return fmt.Sprintf("%s:%d", strings.Join(parts, "/"), src.Line)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// WithRequestID adds a request ID to the logger.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With(slog.String("request_id", requestID))
}

// WithComponent adds a component name to the logger for identifying the source.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithError adds an error to the logger attributes.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With(slog.String("error", err.Error()))
}

// LoggerFromContext extracts a logger from the context.
// If no logger is found, returns the default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// ContextWithLogger adds a logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// RequestIDFromContext extracts a request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// TimedOperationWithError logs the start and end of an operation with its
// duration. errPtr is read when the returned function runs, so an error
// assigned after this call is reported.
//
//	var err error
//	done := observability.TimedOperationWithError(ctx, logger, "refresh", &err)
//	defer done()
//
//nolint:gocritic // errPtr must be a pointer to capture errors set after this call
func TimedOperationWithError(ctx context.Context, logger *slog.Logger, operation string, errPtr *error) func() {
	start := time.Now()
	logger.DebugContext(ctx, "operation started", slog.String("operation", operation))

	return func() {
		duration := time.Since(start)
		if errPtr != nil && *errPtr != nil {
			logger.ErrorContext(ctx, "operation failed",
				slog.String("operation", operation),
				slog.Duration("duration", duration),
				slog.String("error", (*errPtr).Error()),
			)
			return
		}
		logger.InfoContext(ctx, "operation completed",
			slog.String("operation", operation),
			slog.Duration("duration", duration),
		)
	}
}
