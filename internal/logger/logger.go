// Package logger builds the zap logger used by the provisioner.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Production selects the JSON encoder at info level.
const Production = "production"

// New returns a logger for environment: JSON at info level for Production,
// coloured console output at debug level otherwise.
func New(environment string) (*zap.Logger, error) {
	var config zap.Config

	if environment == Production {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.StacktraceKey = "stacktrace"
	// stdout carries the report
	config.OutputPaths = []string{"stderr"}

	return config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}
