package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// UpstreamError reports a provider that was unreachable, timed out, or
// answered with a non-success status.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *UpstreamError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// NewUpstreamError wraps err as an UpstreamError unless it already is one.
func NewUpstreamError(provider string, statusCode int, err error) error {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Provider: provider, StatusCode: statusCode, Err: err}
}

// DecodeError reports a malformed transport encoding in a raw record.
type DecodeError struct {
	RecordID string
	Field    string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s of record %q: %v", e.Field, e.RecordID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StoreError reports an insert rejected by the sink.
type StoreError struct {
	Table    string
	RecordID string
	Err      error
}

func (e *StoreError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("store into %s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("store %q into %s: %v", e.RecordID, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
