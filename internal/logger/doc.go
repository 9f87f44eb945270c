// Package logger provides a minimal leveled logger shared by all components.
//
// Log lines carry a timestamp, a level, and an optional scope tag naming the
// component that emitted them ("httpd", "pool", "bench"). A package-level
// Default logger writes to stdout at Info; components call the package-level
// functions unless they need their own output or level.
//
//	logger.Info("httpd", "listening on %s", addr)
//	logger.Error("pool", "worker %d crashed: %v", id, err)
//
// ParseLevel converts the -log-level flag or config value into a Level.
// All methods are safe for concurrent use.
package logger
