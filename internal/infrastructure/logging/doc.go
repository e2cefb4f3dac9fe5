// Package logging provides the structured logger used across LumenSync.
//
// It is a thin layer over log/slog: config-driven level and format, a
// choice of stdout or stderr, and service/version stamped on every
// record. Each engine takes the Logger through a small local interface,
// so tests substitute their own capture without this package.
//
// # Configuration
//
// The logging section of config.yaml drives everything:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// JSON is the production format; text is easier on the eyes while
// developing against live lights.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	discLog := logger.With("component", "discovery")
//	discLog.Info("session complete", "devices", 4)
//
// # Security
//
// Broker passwords and InfluxDB tokens must never reach a log record.
// When a credential-adjacent value genuinely helps debugging, log a
// truncated prefix, never the value.
package logging
