// Package logger provides structured logging for the resilience layer
// using zerolog.
//
// It supports JSON and console output, log level configuration, file
// rotation, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("breaker")
//	log.Info("state changed", logger.Fields("service", "payments", "state", "open"))
package logger
