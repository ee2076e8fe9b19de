// Package logging wraps log/slog with a console handler and a rotating
// JSON file handler, plus package-level helpers usable before setup.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/tpn-api/config"
)

type LoggingService struct {
	Logger  *slog.Logger
	rotator *RotatingLogger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger from the configuration
func InitLogger(cfg *config.Config, verbose bool) {
	consoleLevel := GetConsoleLogLevel(cfg.Env, cfg.LogLevel, verbose)
	fileLevel := parseLogLevel(cfg.LogLevel)

	logger, rotator := SetupLogger(cfg.LogDir, cfg.LogRetentionWeeks, cfg.MaxLogFileSize, consoleLevel, fileLevel)
	DefaultLoggingService = &LoggingService{
		Logger:  logger,
		rotator: rotator,
	}
	slog.SetDefault(logger)
}

// InitConsoleLogger sets up console-only logging, used by CLI commands
func InitConsoleLogger(level slog.Level) {
	logger := slog.New(newConsoleHandler(os.Stderr, level))
	DefaultLoggingService = &LoggingService{Logger: logger}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotator == nil {
		return nil
	}
	return DefaultLoggingService.rotator.Close()
}

// CleanupOldLogs removes log files past retention. It is a no-op when
// logging to the console only.
func CleanupOldLogs() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotator == nil {
		return nil
	}
	return DefaultLoggingService.rotator.cleanupOldLogs()
}

// parseLogLevel converts a LOG_LEVEL string, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// GetConsoleLogLevel picks the console level: an explicit LOG_LEVEL wins,
// otherwise prod and staging log warnings only. Tests stay quiet unless
// verbose.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevel != "" {
		return parseLogLevel(logLevel)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Logger returns the configured logger, or a console logger before setup
func Logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.New(newConsoleHandler(os.Stderr, slog.LevelInfo))
	}
	return DefaultLoggingService.Logger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
