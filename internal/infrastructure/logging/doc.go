// Package logging provides structured logging for the peripheral engine.
//
// It wraps log/slog with JSON (production) or text (development) output,
// level filtering and the default fields service and version.
//
// Configuration in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Component("monitor").Info("poll complete", "live", 4)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
