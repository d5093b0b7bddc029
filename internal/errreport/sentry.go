// Package errreport forwards failed pipeline runs to Sentry.
package errreport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// DefaultFlushTimeout bounds the wait for queued events at exit.
const DefaultFlushTimeout = 2 * time.Second

// Config enables reporting when DSN is set.
type Config struct {
	DSN         string
	Environment string
	Release     string
	// Transport overrides event delivery; tests use it to capture events.
	Transport sentry.Transport
}

// Reporter sends run failures to Sentry. A nil or disabled Reporter drops
// everything.
type Reporter struct {
	hub    *sentry.Hub
	logger *slog.Logger
}

// New creates a Reporter. An empty DSN returns a disabled Reporter.
func New(cfg Config, logger *slog.Logger) (*Reporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		logger.Debug("Sentry DSN not configured, error reporting disabled")
		return &Reporter{logger: logger}, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		Transport:   cfg.Transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			if event.Request != nil && event.Request.Headers != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "Cookie")
			}
			return event
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	logger.Info("Sentry initialized", "environment", cfg.Environment, "release", cfg.Release)
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope()), logger: logger}, nil
}

// Enabled reports whether events are sent anywhere.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// ReportFailure captures err with tags attached to the event.
func (r *Reporter) ReportFailure(err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		scope.SetLevel(sentry.LevelError)
		r.hub.CaptureException(err)
	})
	r.logger.Debug("failure reported to Sentry", "error", err.Error())
}

// Flush waits up to timeout for queued events to be delivered.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}
