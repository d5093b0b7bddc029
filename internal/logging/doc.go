// Package logging provides structured logging utilities for ingestly.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from LOG_LEVEL / LOG_FORMAT
//   - PII sanitization (email anonymization, token masking)
//   - Consistent attribute naming across pipelines
//   - Logger adapter interface for components that only need leveled output
//
// # Usage Patterns
//
// Create a logger scoped to one pipeline run:
//
//	logger := logging.WithRunID(logging.WithPipeline(base, "email_pipeline"), runID)
//	logger.Info("stage entered", logging.Step("fetching"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("searching mailbox", logging.UserHash(targetEmail))
package logging
