package instrumentation

import (
	"context"
	"log/slog"
	"time"
)

// RunAudit captures the facts of one finished pipeline run.
type RunAudit struct {
	Pipeline string
	RunID    string
	Provider string
	State    string

	Fetched       int
	Stored        int
	StoreFailures int
	Enriched      bool

	StartTime time.Time
	Duration  time.Duration
	Error     string

	TraceID string
	SpanID  string
}

// NewRunAudit starts timing an audit entry.
func NewRunAudit(pipeline, runID string) *RunAudit {
	return &RunAudit{
		Pipeline:  pipeline,
		RunID:     runID,
		StartTime: time.Now(),
	}
}

// WithSpanContext copies trace identifiers from the current span.
func (ra *RunAudit) WithSpanContext(ctx context.Context) *RunAudit {
	ra.TraceID = GetTraceID(ctx)
	ra.SpanID = GetSpanID(ctx)
	return ra
}

// Complete stamps the final state and duration.
func (ra *RunAudit) Complete(state string, err error) *RunAudit {
	ra.Duration = time.Since(ra.StartTime)
	ra.State = state
	if err != nil {
		ra.Error = err.Error()
	}
	return ra
}

// Success reports whether the run ended without an error.
func (ra *RunAudit) Success() bool {
	return ra.Error == ""
}

// LogAttrs returns slog attributes for the entry.
func (ra *RunAudit) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("pipeline", ra.Pipeline),
		slog.String("run_id", ra.RunID),
		slog.String("state", ra.State),
		slog.Int("fetched", ra.Fetched),
		slog.Int("stored", ra.Stored),
		slog.Duration("duration", ra.Duration),
	}

	if ra.Provider != "" {
		attrs = append(attrs, slog.String("provider", ra.Provider))
	}
	if ra.StoreFailures > 0 {
		attrs = append(attrs, slog.Int("store_failures", ra.StoreFailures))
	}
	if ra.Enriched {
		attrs = append(attrs, slog.Bool("enriched", true))
	}
	if ra.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ra.TraceID))
	}
	if ra.Error != "" {
		attrs = append(attrs, slog.String("error", ra.Error))
	}

	return attrs
}

// AuditLogger writes one structured entry per finished run.
type AuditLogger struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditLogger creates an enabled AuditLogger.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger,
		enabled: config.Enabled,
	}
}

// LogRun writes the entry at info level, or warn when the run failed.
func (al *AuditLogger) LogRun(ra *RunAudit) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ra.LogAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ra.Success() {
		al.logger.Info("run_audit", args...)
	} else {
		al.logger.Warn("run_audit", args...)
	}
}
