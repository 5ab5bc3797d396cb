// Package logging provides structured logging for the automation runtime.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, or a file path
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	engineLog := logger.Component("engine")
//	engineLog.Info("automation bound", "automation_id", id)
//
// Never log secrets: MQTT passwords and InfluxDB tokens stay out of
// structured fields.
package logging
