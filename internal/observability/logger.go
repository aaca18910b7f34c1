// Package observability holds the process-wide loggers. The server logs
// structured JSON to stderr; CLI commands get a human-readable console
// logger.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// ServerLogger is used by the HTTP server and its handlers.
	ServerLogger *zap.Logger = zap.NewNop()

	// CLILogger is used by CLI commands.
	CLILogger *zap.Logger = zap.NewNop()
)

// InitServerLogger configures the structured server logger.
func InitServerLogger(service, level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	logger, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		return err
	}

	ServerLogger = logger
	return nil
}

// InitCLILogger configures the console logger for CLI commands.
func InitCLILogger(verbose bool) error {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	CLILogger = logger
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
