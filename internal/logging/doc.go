// Package logging provides structured logging for the lumen tools.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the module. Logging is silent by default so CLI
// output stays clean; set LUMEN_LOG_LEVEL to enable it.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (raw payloads, request ids, pushes)
//   - Info: Normal operations (discovery passes, channel transitions)
//   - Warn: Non-fatal issues (discarded advertisements, rejected properties)
//   - Error: Fatal issues (socket setup failures, terminal channel errors)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("device registered",
//	    zap.String("device_id", "0x1a2b"),
//	    zap.String("addr", "192.168.1.5:55443"),
//	)
//
// # Wire Diagnostics
//
// Raw protocol payloads go through LogRawPayload, which emits a hex and an
// ASCII rendering at Debug level:
//
//	logging.LogRawPayload("advertisement received", payload)
//
// # Configuration
//
// Initialize logging at process startup:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
