package gmail

import (
	gmail "google.golang.org/api/gmail/v1"

	"github.com/ingestly/ingestly/internal/pipeline"
)

// JobName is the source written on email outcome rows.
const JobName = "email_pipeline"

// JobConfig lays out where an email run reads from and writes to.
type JobConfig struct {
	TargetEmail  string
	Label        string
	MaxMessages  int64
	Table        string
	OutcomeTable string
}

// NewJob builds the email ingestion job: one sender search, every message
// stored as its own row in cfg.Table, and a run summary in cfg.OutcomeTable.
func NewJob(c *Client, cfg JobConfig) pipeline.Job[*gmail.Message] {
	return pipeline.Job[*gmail.Message]{
		Name:  JobName,
		Label: cfg.Label,
		Noun:  "emails",
		Plan: pipeline.Plan[*gmail.Message]{
			Descriptor(c, QueryFrom(cfg.TargetEmail), cfg.MaxMessages),
		},
		Normalize:      Normalize,
		RecordTable:    cfg.Table,
		RecordRow:      EmailRow,
		OutcomeTable:   cfg.OutcomeTable,
		OutcomePayload: RunSummary,
	}
}

// RunSummary is the structured payload of a successful email run.
func RunSummary(p pipeline.EnrichedPayload) map[string]any {
	ids := make([]string, 0, len(p.Records))
	for _, r := range p.Records {
		ids = append(ids, r.ID)
	}
	return map[string]any{
		"run_id":               p.RunID,
		"message_ids":          ids,
		"message_count":        len(p.Records),
		"processing_timestamp": p.ProcessedAt,
	}
}
