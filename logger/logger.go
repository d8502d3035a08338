package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *zap.Logger
)

// Initialize sets up the logger with the specified log level. Format selects
// the encoder: "console" for human readable output, anything else for JSON.
func Initialize(level, format string) error {
	var config zap.Config
	if level == "debug" || format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	if format == "console" {
		config.Encoding = "console"
	} else {
		config.Encoding = "json"
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	built, err := config.Build()
	if err != nil {
		return err
	}
	Logger = built.Named("reposync")

	zap.ReplaceGlobals(Logger)

	return nil
}

var nop = zap.NewNop()

// current returns the global logger, or a no-op logger before Initialize so
// library code and tests never have to check.
func current() *zap.Logger {
	if Logger == nil {
		return nop
	}
	return Logger
}

// Sync flushes any buffered log entries
func Sync() {
	_ = current().Sync()
}

// With returns a child logger carrying fields.
func With(fields ...zap.Field) *zap.Logger {
	return current().With(fields...)
}

func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { current().Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { current().Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }
