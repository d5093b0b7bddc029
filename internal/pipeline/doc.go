// Package pipeline holds the ingestion pattern shared by every ingestly job:
// fetch raw records through an ordered fallback plan, normalize them into
// Record values, optionally enrich the batch, and persist the result.
//
// The package owns the canonical Record type, the error taxonomy
// (UpstreamError, DecodeError, StoreError), the Sink port implemented by
// internal/sink, and the Orchestrator that drives one run through the
// states Idle, Fetching, Normalizing, Enriching, Storing and Done or Failed.
//
// Provider-specific packages (internal/gmail, internal/news) supply the raw
// record type, the fetch descriptors and the normalize function; this package
// never looks inside a raw record.
package pipeline
