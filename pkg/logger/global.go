package logger

import (
	"os"
	"sync"
)

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// GetLogger returns the process-wide logger, creating it from the
// environment on first use. YTMETA_LOG_LEVEL wins over LOG_LEVEL; DEBUG=true
// forces debug.
func GetLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = New(Config{
			Level:  levelFromEnv(),
			Format: "json",
			Output: "stderr",
		})
	}
	return globalLogger
}

func levelFromEnv() string {
	if os.Getenv("DEBUG") == "true" {
		return "debug"
	}
	if v := os.Getenv("YTMETA_LOG_LEVEL"); v != "" {
		return v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		return v
	}
	return "warn"
}

// SetLogger replaces the global logger instance
func SetLogger(logger *Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
	SetGlobalLogger(logger)
}

func Debug(msg string) {
	GetLogger().Debug(msg)
}

func Info(msg string) {
	GetLogger().Info(msg)
}

func Warn(msg string) {
	GetLogger().Warn(msg)
}

func Error(msg string) {
	GetLogger().Error(msg)
}

// Fatal logs a fatal message and exits
func Fatal(msg string) {
	GetLogger().Fatal(msg)
}

func WithField(key string, value interface{}) *Logger {
	return GetLogger().WithField(key, value)
}

func WithFields(fields map[string]interface{}) *Logger {
	return GetLogger().WithFields(fields)
}

func WithError(err error) *Logger {
	return GetLogger().WithError(err)
}
