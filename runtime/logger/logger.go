// Package logger provides structured logging for task workers with automatic
// credential redaction.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Engine REST request and response logging
//   - Task lifecycle logging (received, handled, outcome reported)
//   - Redaction of bearer tokens, basic credentials and client secrets
//   - Contextual logging with task, topic and worker identifiers
//   - Per-module level control and rotating file output
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
)

// LevelTrace is below debug and enables wire-level engine logging.
const LevelTrace = slog.LevelDebug - 4

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// logOutput is where the built-in handlers write.
	logOutput io.Writer = os.Stderr

	// customHandler is set by SetLogger; Configure leaves it in place.
	customHandler slog.Handler

	mu sync.Mutex
)

func init() {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	DefaultLogger = slog.New(NewContextHandler(newBaseHandler(level, false)))
}

func newBaseHandler(level slog.Level, useJSON bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if useJSON {
		return slog.NewJSONHandler(logOutput, opts)
	}
	return slog.NewTextHandler(logOutput, opts)
}

// ParseLevel converts a level name (trace, debug, info, warn, error) to a
// slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the logging level for all subsequent log operations.
func SetLevel(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	if customHandler != nil {
		return
	}
	DefaultLogger = slog.New(NewContextHandler(newBaseHandler(level, false)))
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetOutput redirects the built-in handlers to w. A nil writer restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
	mu.Unlock()
	SetLevel(slog.LevelInfo)
}

// SetLogger installs an application-provided logger. Its handler is wrapped
// so context fields are still added. Passing nil restores the default.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		customHandler = nil
		DefaultLogger = slog.New(NewContextHandler(newBaseHandler(slog.LevelInfo, false)))
		return
	}
	customHandler = l.Handler()
	DefaultLogger = slog.New(NewContextHandler(customHandler))
}

// Info logs an informational message with structured key-value attributes.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// TaskReceived logs a locked task handed to a handler.
func TaskReceived(ctx context.Context, topic, taskID string, variables int, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"topic", topic,
		"task_id", taskID,
		"variables", variables,
	)
	allAttrs = append(allAttrs, attrs...)
	DebugContext(ctx, "task received", allAttrs...)
}

// TaskOutcome logs the result of reporting a task outcome to the engine.
// Failures are logged at warn level since the worker carries on.
func TaskOutcome(ctx context.Context, operation, taskID string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"operation", operation,
		"task_id", taskID,
	)
	allAttrs = append(allAttrs, attrs...)
	if err != nil {
		allAttrs = append(allAttrs, "error", err)
		WarnContext(ctx, "task outcome rejected", allAttrs...)
		return
	}
	InfoContext(ctx, "task outcome reported", allAttrs...)
}

var (
	// sensitivePatterns match credentials that may appear in URLs, headers
	// and request bodies sent to the engine.
	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._~+/=-]+`),
		regexp.MustCompile(`Basic\s+[a-zA-Z0-9+/=]+`),
		regexp.MustCompile(`"(password|clientSecret|client_secret)"\s*:\s*"[^"]*"`),
		regexp.MustCompile(`(client_secret|password)=[^&\s]+`),
	}
)

// RedactSensitiveData removes credentials from strings. Authorization schemes
// keep their scheme name; secrets in JSON bodies and query strings keep their
// key.
func RedactSensitiveData(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, redactMatch)
	}
	return result
}

func redactMatch(match string) string {
	switch {
	case strings.HasPrefix(match, "Bearer"):
		return "Bearer [REDACTED]"
	case strings.HasPrefix(match, "Basic"):
		return "Basic [REDACTED]"
	case strings.HasPrefix(match, `"`):
		key := match[:strings.Index(match[1:], `"`)+2]
		return key + `:"[REDACTED]"`
	default:
		key, _, _ := strings.Cut(match, "=")
		return key + "=[REDACTED]"
	}
}

// EngineRequest logs an outbound engine REST call at debug level with
// redaction. It is a no-op when debug logging is disabled.
func EngineRequest(ctx context.Context, method, url string, headers map[string]string, body []byte) {
	if !DefaultLogger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, 8)
	attrs = append(attrs,
		"method", method,
		"url", RedactSensitiveData(url),
	)
	if len(headers) > 0 {
		redacted := make(map[string]string, len(headers))
		for key, value := range headers {
			redacted[key] = RedactSensitiveData(value)
		}
		attrs = append(attrs, "headers", redacted)
	}
	if len(body) > 0 {
		attrs = append(attrs, "body", RedactSensitiveData(string(body)))
	}

	DebugContext(ctx, "engine request", attrs...)
}

// EngineResponse logs an engine REST response at debug level. A transport
// error is logged at error level regardless of the body.
func EngineResponse(ctx context.Context, method, url string, statusCode int, body []byte, err error) {
	if !DefaultLogger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := make([]any, 0, 8)
	attrs = append(attrs,
		"method", method,
		"url", RedactSensitiveData(url),
		"status_code", statusCode,
	)

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		ErrorContext(ctx, "engine request failed", attrs...)
		return
	}

	if len(body) > 0 {
		var obj any
		if json.Unmarshal(body, &obj) == nil {
			compact, _ := json.Marshal(obj) // NOSONAR: re-marshal of decoded JSON cannot fail
			attrs = append(attrs, "body", RedactSensitiveData(string(compact)))
		} else {
			attrs = append(attrs, "body", RedactSensitiveData(string(body)))
		}
	}

	msg := "engine response"
	if statusCode >= 400 {
		msg = "engine error response"
	}
	DebugContext(ctx, msg, attrs...)
}
