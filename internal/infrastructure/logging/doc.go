// Package logging provides structured logging for the SQL façade.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("database connected", "path", path)
//	logger.Error("failed to commit", "error", err)
//
// Never log bound parameter values at info level or above; they may hold
// application data.
package logging
