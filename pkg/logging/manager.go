package logging

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LoggingManager manages structured logging across the application
type LoggingManager struct {
	loggers map[string]*StructuredLogger
	mutex   sync.RWMutex
	writer  io.Writer

	// Global context that gets added to all log entries
	globalContext LogContext

	stats LoggingStats

	// Shared by every logger the manager hands out
	level *atomic.Int32
}

// LoggingStats tracks logging statistics
type LoggingStats struct {
	TotalMessages    int64            `json:"totalMessages"`
	MessagesByLevel  map[string]int64 `json:"messagesByLevel"`
	MessagesByLogger map[string]int64 `json:"messagesByLogger"`
	ErrorCount       int64            `json:"errorCount"`
	LastLogTime      time.Time        `json:"lastLogTime"`
}

// NewLoggingManager creates a new logging manager writing to stderr
func NewLoggingManager() *LoggingManager {
	return NewLoggingManagerWithWriter(os.Stderr)
}

// NewLoggingManagerWithWriter creates a logging manager writing to w
func NewLoggingManagerWithWriter(w io.Writer) *LoggingManager {
	level := &atomic.Int32{}
	level.Store(int32(zerolog.InfoLevel))
	return &LoggingManager{
		loggers:       make(map[string]*StructuredLogger),
		writer:        w,
		globalContext: make(LogContext),
		stats: LoggingStats{
			MessagesByLevel:  make(map[string]int64),
			MessagesByLogger: make(map[string]int64),
		},
		level: level,
	}
}

// GetLogger gets or creates a logger for a specific component
func (lm *LoggingManager) GetLogger(component string) *StructuredLogger {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger
	}

	logger := NewStructuredLoggerWithWriter(component, lm.writer)
	logger.minLevel = lm.level
	for key, value := range lm.globalContext {
		logger = logger.WithContext(key, value)
	}

	lm.loggers[component] = logger
	return logger
}

// SetLogLevel sets the logging level for all loggers.
// Unknown level names fall back to INFO.
func (lm *LoggingManager) SetLogLevel(level string) {
	lm.level.Store(int32(ParseLevel(level)))
}

// GetLogLevel returns the current level name
func (lm *LoggingManager) GetLogLevel() string {
	return zerolog.Level(lm.level.Load()).String()
}

// SetGlobalContext sets global context that will be added to all log entries
func (lm *LoggingManager) SetGlobalContext(key string, value interface{}) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.globalContext[key] = value
	for component, logger := range lm.loggers {
		lm.loggers[component] = logger.WithContext(key, value)
	}
}

// LogMCPRequest logs MCP protocol requests with timing
func (lm *LoggingManager) LogMCPRequest(method string, requestID interface{}, duration time.Duration, success bool, errorMsg string) {
	logger := lm.GetLogger("mcp_protocol")
	if !success && errorMsg != "" {
		logger = logger.WithContext("error_message", errorMsg)
	}
	logger.LogMCPMessage(method, requestID, duration, success)

	level := "INFO"
	if !success {
		level = "WARN"
	}
	lm.updateStats("mcp_protocol", level)
}

// LogStartupSequence logs one startup phase with its duration and outcome
func (lm *LoggingManager) LogStartupSequence(phase string, details map[string]interface{}, duration time.Duration, success bool) {
	lm.logSequence("startup", phase, details, duration, success)
}

// LogShutdownSequence logs one shutdown phase with its duration and outcome
func (lm *LoggingManager) LogShutdownSequence(phase string, details map[string]interface{}, duration time.Duration, success bool) {
	lm.logSequence("shutdown", phase, details, duration, success)
}

func (lm *LoggingManager) logSequence(component, phase string, details map[string]interface{}, duration time.Duration, success bool) {
	logger := lm.GetLogger(component).
		WithContext("phase", phase).
		WithContext("duration_ms", duration.Milliseconds()).
		WithContext("success", success)
	for k, v := range details {
		logger = logger.WithContext(k, v)
	}

	level := "INFO"
	if success {
		logger.Info(component + " " + phase)
	} else {
		level = "ERROR"
		logger.Error(component + " " + phase)
	}
	lm.updateStats(component, level)
}

func (lm *LoggingManager) updateStats(component, level string) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.stats.TotalMessages++
	lm.stats.MessagesByLevel[level]++
	lm.stats.MessagesByLogger[component]++
	lm.stats.LastLogTime = time.Now()

	if level == "ERROR" {
		lm.stats.ErrorCount++
	}
}

// GetStats returns current logging statistics
func (lm *LoggingManager) GetStats() LoggingStats {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	stats := LoggingStats{
		TotalMessages:    lm.stats.TotalMessages,
		ErrorCount:       lm.stats.ErrorCount,
		LastLogTime:      lm.stats.LastLogTime,
		MessagesByLevel:  make(map[string]int64, len(lm.stats.MessagesByLevel)),
		MessagesByLogger: make(map[string]int64, len(lm.stats.MessagesByLogger)),
	}
	for k, v := range lm.stats.MessagesByLevel {
		stats.MessagesByLevel[k] = v
	}
	for k, v := range lm.stats.MessagesByLogger {
		stats.MessagesByLogger[k] = v
	}
	return stats
}
