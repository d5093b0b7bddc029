// Package gmail fetches messages from a Gmail mailbox and normalizes them
// into pipeline records.
//
// Fetching is query-by-filter: messages.list with a search query, then one
// messages.get per matched ID in full format. Calls are rate limited and
// each one is bounded by the configured timeout; failures surface as
// *pipeline.UpstreamError.
//
// Normalization picks the first text/plain part of a multipart message
// (depth-first, attachments skipped) or the inline body of a simple one,
// and decodes Gmail's URL-safe base64. A malformed body is a
// *pipeline.DecodeError.
//
// Authorization is not handled here. Callers pass an HTTP client from
// google.Session.
package gmail
