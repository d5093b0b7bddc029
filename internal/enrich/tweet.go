package enrich

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ingestly/ingestly/internal/instrumentation"
	"github.com/ingestly/ingestly/internal/logging"
	"github.com/ingestly/ingestly/internal/pipeline"
)

const (
	// DefaultMaxChars is the post length cap.
	DefaultMaxChars = 280
	// DefaultFallback is posted when generation fails.
	DefaultFallback = "🇮🇳 Latest Indian news updates! Stay informed, stay awesome! 📰✨ #IndiaNews #StayInformed"
	// DefaultTimeout bounds one generation call.
	DefaultTimeout = 30 * time.Second
)

// TweetEnricher writes one short social post for a batch of articles. It
// never fails: any generator error yields Fallback.
type TweetEnricher struct {
	Generator Generator
	MaxChars  int
	Fallback  string
	Timeout   time.Duration

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// NewTweetEnricher creates an enricher with the default cap, fallback and
// timeout.
func NewTweetEnricher(gen Generator, logger *slog.Logger, metrics *instrumentation.Metrics) *TweetEnricher {
	return &TweetEnricher{
		Generator: gen,
		MaxChars:  DefaultMaxChars,
		Fallback:  DefaultFallback,
		Timeout:   DefaultTimeout,
		Metrics:   metrics,
		Logger:    logger,
	}
}

// Enrich implements pipeline.Enricher.
func (e *TweetEnricher) Enrich(ctx context.Context, records []pipeline.Record) pipeline.Enrichment {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxChars := e.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	fallback := e.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}

	if e.Generator == nil {
		logger.Warn("no generator configured, using fallback post")
		e.Metrics.RecordEnrichment(ctx, instrumentation.EnrichmentFallback)
		return pipeline.Enrichment{Text: fallback}
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	ctx, span := instrumentation.StartSpan(ctx, "enrich.generate",
		attribute.Int(instrumentation.SpanAttrRecords, len(records)))
	defer span.End()

	text, err := e.Generator.Generate(ctx, BuildPrompt(records, maxChars))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		instrumentation.SetSpanError(span, err)
		logger.Error("post generation failed, using fallback", logging.Err(err))
		e.Metrics.RecordEnrichment(ctx, instrumentation.EnrichmentFallback)
		return pipeline.Enrichment{Text: fallback}
	}

	text = Truncate(text, maxChars)
	instrumentation.SetSpanSuccess(span)
	logger.Info("generated post", "chars", len([]rune(text)))
	e.Metrics.RecordEnrichment(ctx, instrumentation.EnrichmentGenerated)
	return pipeline.Enrichment{Text: text, OK: true}
}
