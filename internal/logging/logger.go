// Package logging provides the process-wide structured logger.
package logging

import (
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	sugar   *zap.SugaredLogger
	initted bool
)

// Initialize sets up the global logger. Safe to call more than once; later
// calls are no-ops. Output is JSON unless MCP_UNSTRUCTURED_LOGS is unset or
// "true" (console encoding), matching the common convention of defaulting to
// human-readable logs in a terminal and structured logs under supervision.
func Initialize() {
	mu.Lock()
	defer mu.Unlock()
	if initted {
		return
	}

	level := zapcore.InfoLevel
	if d, _ := strconv.ParseBool(os.Getenv("MCP_DEBUG")); d {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if unstructuredLogs() {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Logging is not available yet; fall back to a no-op logger rather
		// than crashing a server over its own diagnostics path.
		logger = zap.NewNop()
	}

	sugar = logger.Sugar()
	initted = true
}

func unstructuredLogs() bool {
	v, ok := os.LookupEnv("MCP_UNSTRUCTURED_LOGS")
	if !ok {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return b
}

// Get returns the process-wide sugared logger, initializing it with defaults
// if Initialize was never called.
func Get() *zap.SugaredLogger {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	if s != nil {
		return s
	}
	Initialize()
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Debugf logs at debug level.
func Debugf(template string, args ...interface{}) { Get().Debugf(template, args...) }

// Infof logs at info level.
func Infof(template string, args ...interface{}) { Get().Infof(template, args...) }

// Warnf logs at warn level.
func Warnf(template string, args ...interface{}) { Get().Warnf(template, args...) }

// Errorf logs at error level.
func Errorf(template string, args ...interface{}) { Get().Errorf(template, args...) }

// With returns a child logger with the given structured key/value pairs.
func With(args ...interface{}) *zap.SugaredLogger { return Get().With(args...) }
