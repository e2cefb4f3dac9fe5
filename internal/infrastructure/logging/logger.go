package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lumensync/lumen-core/internal/infrastructure/config"
)

// Logger is the process-wide structured logger, a thin wrapper over
// slog.Logger that stamps every record with the service identity. The
// sub-engines (discovery, dispatch, sync, scenes) each receive a child
// built with With("component", ...), so log lines are filterable per
// engine.
//
// All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml: level
// filtering, JSON or text rendering, and stdout or stderr output, with
// service and version attached as default fields.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Build version for the default field
//
// Returns:
//   - *Logger: Configured logger
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "lumensync"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string to a slog.Level. Unrecognised values
// fall back to info rather than failing startup over a typo.
func parseLevel(level string) slog.Level {
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

// With returns a child logger carrying additional default attributes.
//
// Parameters:
//   - args: Key-value pairs added to every record
//
// Returns:
//   - *Logger: Child logger
//
// Example:
//
//	mqttLogger := logger.With("component", "mqtt")
//	mqttLogger.Info("connected") // Includes component=mqtt
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON/info/stdout logger for the window before the
// configuration file has been read. Anything logged through it carries
// version "dev".
//
// Returns:
//   - *Logger: Early-startup logger
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
