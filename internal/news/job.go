package news

import (
	"github.com/ingestly/ingestly/internal/pipeline"
)

const (
	// JobName is the source written on digest rows.
	JobName = "indian_news_pipeline"
	// PayloadColumn holds the digest document in the news table.
	PayloadColumn = "news"
)

// JobConfig wires the providers and destination of a digest run.
type JobConfig struct {
	// Headlines is optional; without it the plan starts at the feeds.
	Headlines *HeadlinesClient
	Quotas    []CategoryQuota
	Feeds     *FeedFetcher
	Enricher  pipeline.Enricher
	Label     string
	Table     string
}

// Plan orders the headline API before the feeds.
func Plan(cfg JobConfig) pipeline.Plan[Item] {
	var plan pipeline.Plan[Item]
	if cfg.Headlines != nil {
		quotas := cfg.Quotas
		if len(quotas) == 0 {
			quotas = DefaultQuotas
		}
		plan = append(plan, HeadlinesDescriptor(cfg.Headlines, quotas))
	}
	if cfg.Feeds != nil {
		plan = append(plan, cfg.Feeds.Descriptor())
	}
	return plan
}

// NewJob builds the news digest job: one enriched row per run in cfg.Table,
// with no per-article rows.
func NewJob(cfg JobConfig) pipeline.Job[Item] {
	return pipeline.Job[Item]{
		Name:           JobName,
		Label:          cfg.Label,
		Noun:           "articles",
		Plan:           Plan(cfg),
		Normalize:      Normalize,
		Enricher:       cfg.Enricher,
		OutcomeTable:   cfg.Table,
		OutcomeColumn:  PayloadColumn,
		OutcomePayload: DigestPayload,
	}
}

// DigestPayload is the stored digest document.
func DigestPayload(p pipeline.EnrichedPayload) map[string]any {
	articles := make([]map[string]any, 0, len(p.Records))
	for _, r := range p.Records {
		articles = append(articles, ArticleFields(r))
	}
	return map[string]any{
		"articles":             articles,
		"generated_tweet":      p.GeneratedText,
		"processing_timestamp": p.ProcessedAt,
		"article_count":        len(p.Records),
		"run_id":               p.RunID,
		"enriched":             p.Status,
	}
}
