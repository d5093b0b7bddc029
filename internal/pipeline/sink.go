package pipeline

import (
	"context"
	"errors"
)

// Sink is the append-only persistence port. Every call is an independent
// insert; implementations never check for existing identifiers.
type Sink interface {
	Insert(ctx context.Context, table string, row Row) error
}

// StoreResult is the per-record outcome of StoreBatch.
type StoreResult struct {
	RecordID string
	Err      error
}

// StoreRecord inserts one row and wraps any failure in a *StoreError.
func StoreRecord(ctx context.Context, sink Sink, table, recordID string, row Row) error {
	if err := sink.Insert(ctx, table, row); err != nil {
		var se *StoreError
		if errors.As(err, &se) {
			return err
		}
		return &StoreError{Table: table, RecordID: recordID, Err: err}
	}
	return nil
}

// StoreBatch inserts each record on its own. A failed insert is reported in
// its result and does not stop the remaining inserts.
func StoreBatch(ctx context.Context, sink Sink, table string, records []Record, toRow func(Record) Row) []StoreResult {
	results := make([]StoreResult, 0, len(records))
	for _, r := range records {
		err := StoreRecord(ctx, sink, table, r.ID, toRow(r))
		results = append(results, StoreResult{RecordID: r.ID, Err: err})
	}
	return results
}

// FailedResults returns the errors of the failed results, in order.
func FailedResults(results []StoreResult) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
