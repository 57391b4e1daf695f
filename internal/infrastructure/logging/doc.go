// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Bridge starting", zap.String("port", "8600"))
//	logger.Error("Store fetch failed", zap.Error(err))
package logging
