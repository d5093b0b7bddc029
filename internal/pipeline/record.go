package pipeline

import "time"

// ProcessedAtLayout is the fixed form of Record.ProcessedAt.
const ProcessedAtLayout = "2006-01-02T15:04:05.000000"

// Record is the normalized unit persisted downstream.
type Record struct {
	// ID is the provider-assigned identifier, unique within one fetch batch.
	ID string `json:"id"`
	// Title is the subject line or headline. May be empty.
	Title string `json:"title"`
	// Timestamp is the provider-reported creation time, kept verbatim.
	Timestamp string `json:"timestamp"`
	// Body is the primary text content. May be empty.
	Body string `json:"body"`
	// Source is the originating address or feed name.
	Source string `json:"source"`
	// Link points back at the original item when the provider has one.
	Link string `json:"link,omitempty"`
	// PipelineLabel names the pipeline instance that produced the record.
	PipelineLabel string `json:"pipeline_label"`
	// ProcessedAt is the normalization wall-clock time in ProcessedAtLayout.
	ProcessedAt string `json:"processed_at"`
}

// NormalizeContext carries the per-run values stamped onto every record.
type NormalizeContext struct {
	PipelineLabel string
	Now           time.Time
}

// ProcessedAt renders Now in ProcessedAtLayout (UTC).
func (c NormalizeContext) ProcessedAt() string {
	return FormatTimestamp(c.Now)
}

// FormatTimestamp renders t in ProcessedAtLayout (UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(ProcessedAtLayout)
}

// Row is one insert against a sink table.
type Row map[string]any

// EnrichedPayload is a normalized batch plus the text derived from it.
// It is built once per run and only read afterwards.
type EnrichedPayload struct {
	RunID         string
	Records       []Record
	GeneratedText string
	// Status reports whether the generative service produced GeneratedText.
	Status      bool
	ProcessedAt string
}
