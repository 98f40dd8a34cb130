package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is shared by every goroutine; it is never nil
var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "TASFLEET_LOG_LEVEL"

// Initialize creates a new logger with the specified level.
// If level is empty, it checks TASFLEET_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger.Store(zap.NewNop())
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Store(built)

	return nil
}

// InitializeFromEnv initializes the logger from the TASFLEET_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// ParseLevel maps a level name to a zap level.
// Unknown names fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLogger replaces the global logger (used by tests to capture output)
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// GetLogger returns the global logger instance.
// It is a no-op logger until Initialize or SetLogger runs.
func GetLogger() *zap.Logger {
	return logger.Load()
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogProbe logs the outcome of one scan probe
func LogProbe(address string, matched bool, firmware string, err error) {
	fields := []zap.Field{
		zap.String("address", address),
		zap.Bool("matched", matched),
	}
	if firmware != "" {
		fields = append(fields, zap.String("firmware", firmware))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	if matched {
		Info("Found device", fields...)
		return
	}
	Debug("Probe did not match", fields...)
}

// LogHTTPExchange logs a request made to a device and how it ended
func LogHTTPExchange(address, method, path string, statusCode int, elapsed time.Duration, err error) {
	fields := []zap.Field{
		zap.String("address", address),
		zap.String("method", method),
		zap.String("path", path),
		zap.Duration("elapsed", elapsed),
	}
	if statusCode != 0 {
		fields = append(fields, zap.Int("status_code", statusCode))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Debug("Device request", fields...)
}

// LogDeviceResult logs the per-device outcome of a fleet operation
func LogDeviceResult(op, address string, ok bool, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("address", address),
		zap.Bool("ok", ok),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		Warn("Device operation failed", fields...)
		return
	}
	Debug("Device operation finished", fields...)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = logger.Load().Sync()
}
