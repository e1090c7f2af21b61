package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"cityquest-mcp-service/pkg/errors"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// LogContext represents contextual information for log entries
type LogContext map[string]interface{}

// StructuredLogger provides structured logging capabilities.
// Loggers are immutable: WithContext and WithError return copies.
type StructuredLogger struct {
	logger    zerolog.Logger
	component string
	context   LogContext
	minLevel  *atomic.Int32
}

// NewStructuredLogger creates a new structured logger writing JSON to stderr.
// Stdout is reserved for the stdio MCP transport.
func NewStructuredLogger(component string) *StructuredLogger {
	return NewStructuredLoggerWithWriter(component, os.Stderr)
}

// NewStructuredLoggerWithWriter creates a structured logger writing JSON to w
func NewStructuredLoggerWithWriter(component string, w io.Writer) *StructuredLogger {
	level := &atomic.Int32{}
	level.Store(int32(zerolog.DebugLevel))
	return &StructuredLogger{
		logger:    zerolog.New(w).With().Timestamp().Logger(),
		component: component,
		context:   make(LogContext),
		minLevel:  level,
	}
}

// Component returns the component name the logger was created for
func (sl *StructuredLogger) Component() string {
	return sl.component
}

// WithContext adds context to the logger (returns a new logger instance)
func (sl *StructuredLogger) WithContext(key string, value interface{}) *StructuredLogger {
	newLogger := &StructuredLogger{
		logger:    sl.logger,
		component: sl.component,
		context:   make(LogContext, len(sl.context)+1),
		minLevel:  sl.minLevel,
	}
	for k, v := range sl.context {
		newLogger.context[k] = v
	}
	newLogger.context[key] = value
	return newLogger
}

// WithError adds error information to the logger context
func (sl *StructuredLogger) WithError(err error) *StructuredLogger {
	if err == nil {
		return sl
	}

	newLogger := sl.WithContext("error", err.Error())

	if structuredErr, ok := errors.As(err); ok {
		newLogger = newLogger.
			WithContext("error_category", structuredErr.Category).
			WithContext("error_code", structuredErr.Code).
			WithContext("error_severity", structuredErr.Severity).
			WithContext("error_recoverable", structuredErr.IsRecoverable())

		for k, v := range structuredErr.Context {
			newLogger = newLogger.WithContext(fmt.Sprintf("error_ctx_%s", k), v)
		}
		if len(structuredErr.Violations) > 0 {
			fields := make([]string, 0, len(structuredErr.Violations))
			for _, v := range structuredErr.Violations {
				fields = append(fields, v.Field)
			}
			newLogger = newLogger.WithContext("error_fields", fields)
		}
	}

	return newLogger
}

func (sl *StructuredLogger) emit(level zerolog.Level, message string) {
	if sl.minLevel != nil && level < zerolog.Level(sl.minLevel.Load()) {
		return
	}
	event := sl.logger.WithLevel(level).Str("component", sl.component)
	for key, value := range sl.context {
		event = event.Interface(key, sanitizeValue(key, value))
	}
	event.Msg(message)
}

// Debug logs a debug message
func (sl *StructuredLogger) Debug(message string) {
	sl.emit(zerolog.DebugLevel, message)
}

// Info logs an info message
func (sl *StructuredLogger) Info(message string) {
	sl.emit(zerolog.InfoLevel, message)
}

// Warn logs a warning message
func (sl *StructuredLogger) Warn(message string) {
	sl.emit(zerolog.WarnLevel, message)
}

// Error logs an error message
func (sl *StructuredLogger) Error(message string) {
	sl.emit(zerolog.ErrorLevel, message)
}

// LogMCPMessage logs an MCP protocol message with timing information
func (sl *StructuredLogger) LogMCPMessage(method string, requestID interface{}, duration time.Duration, success bool) {
	logger := sl.WithContext("mcp_method", method).
		WithContext("request_id", requestID).
		WithContext("duration_ms", duration.Milliseconds()).
		WithContext("success", success)

	if success {
		logger.Info("MCP message processed successfully")
	} else {
		logger.Warn("MCP message processing failed")
	}
}

// LogStartup logs application startup events
func (sl *StructuredLogger) LogStartup(event string, details map[string]interface{}) {
	logger := sl.WithContext("startup_event", event)
	for k, v := range details {
		logger = logger.WithContext(k, v)
	}
	logger.Info("Application startup event")
}

// LogShutdown logs application shutdown events
func (sl *StructuredLogger) LogShutdown(event string, details map[string]interface{}) {
	logger := sl.WithContext("shutdown_event", event)
	for k, v := range details {
		logger = logger.WithContext(k, v)
	}
	logger.Info("Application shutdown event")
}

// LogFileSystemEvent logs template watcher events
func (sl *StructuredLogger) LogFileSystemEvent(eventType string, path string, details map[string]interface{}) {
	logger := sl.WithContext("fs_event_type", eventType).
		WithContext("fs_path", path)
	for k, v := range details {
		logger = logger.WithContext(k, v)
	}
	logger.Info("File system event detected")
}

// LogCircuitBreakerEvent logs circuit breaker state changes
func (sl *StructuredLogger) LogCircuitBreakerEvent(name string, oldState, newState errors.CircuitBreakerState) {
	sl.WithContext("circuit_breaker", name).
		WithContext("old_state", oldState.String()).
		WithContext("new_state", newState.String()).
		Warn("Circuit breaker state changed")
}

// LogArguments logs tool arguments at debug level; values are masked on emit
func (sl *StructuredLogger) LogArguments(message string, arguments map[string]interface{}) {
	logger := sl
	for k, v := range arguments {
		logger = logger.WithContext("arg_"+k, v)
	}
	logger.Debug(message)
}

var sensitiveKeys = []string{
	"password", "token", "secret", "key", "auth", "credential", "dsn", "avatar",
}

// maxLoggedStringLength caps free text copied into log entries
const maxLoggedStringLength = 200

// sanitizeValue redacts values under sensitive keys and shortens long strings
func sanitizeValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	for _, sensitiveKey := range sensitiveKeys {
		if strings.Contains(keyLower, sensitiveKey) {
			return "[REDACTED]"
		}
	}

	str, ok := value.(string)
	if !ok {
		return value
	}
	if strings.HasPrefix(str, "data:") {
		return fmt.Sprintf("[DATA_URL:%d_chars]", len(str))
	}
	if len(str) > maxLoggedStringLength {
		return str[:maxLoggedStringLength] + "..."
	}
	return str
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
