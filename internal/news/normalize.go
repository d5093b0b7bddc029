package news

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ingestly/ingestly/internal/pipeline"
)

// Normalize converts a raw news item into a pipeline record. The article
// URL is the record ID; items without one get a stable name-based UUID.
func Normalize(item Item, nctx pipeline.NormalizeContext) (pipeline.Record, error) {
	var rec pipeline.Record
	switch it := item.(type) {
	case HeadlineArticle:
		rec = pipeline.Record{
			Title:     it.Title,
			Timestamp: it.PublishedAt,
			Body:      it.Description,
			Source:    it.Source.Name,
			Link:      it.URL,
		}
	case FeedEntry:
		rec = pipeline.Record{
			Title:     it.Title,
			Timestamp: it.Published,
			Body:      it.Summary,
			Source:    it.FeedTitle,
			Link:      it.Link,
		}
	default:
		return pipeline.Record{}, &pipeline.DecodeError{Field: "item", Err: fmt.Errorf("unsupported news item %T", item)}
	}

	rec.ID = rec.Link
	if rec.ID == "" {
		rec.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(rec.Source+"\x00"+rec.Title+"\x00"+rec.Timestamp)).String()
	}
	rec.PipelineLabel = nctx.PipelineLabel
	rec.ProcessedAt = nctx.ProcessedAt()
	return rec, nil
}

// ArticleFields renders a record in the stored article layout.
func ArticleFields(r pipeline.Record) map[string]any {
	return map[string]any{
		"title":       r.Title,
		"description": r.Body,
		"url":         r.Link,
		"publishedAt": r.Timestamp,
		"source":      map[string]any{"name": r.Source},
	}
}
