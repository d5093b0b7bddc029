package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrProvider = "provider"
	attrStatus   = "status"
	attrPipeline = "pipeline"
	attrTable    = "table"
	attrResult   = "result"
	attrState    = "state"
)

// Metrics records pipeline metrics. The zero value and a nil *Metrics are
// valid no-op recorders.
type Metrics struct {
	upstreamFetchTotal    metric.Int64Counter
	upstreamFetchDuration metric.Float64Histogram
	upstreamRecords       metric.Int64Counter

	recordsNormalizedTotal metric.Int64Counter

	storeOperationsTotal   metric.Int64Counter
	storeOperationDuration metric.Float64Histogram

	enrichmentTotal metric.Int64Counter

	pipelineRunsTotal   metric.Int64Counter
	pipelineRunDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.upstreamFetchTotal, err = meter.Int64Counter(
		"upstream_fetch_total",
		metric.WithDescription("Total number of upstream provider fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_fetch_total counter: %w", err)
	}

	m.upstreamFetchDuration, err = meter.Float64Histogram(
		"upstream_fetch_duration_seconds",
		metric.WithDescription("Upstream provider fetch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_fetch_duration_seconds histogram: %w", err)
	}

	m.upstreamRecords, err = meter.Int64Counter(
		"upstream_records_total",
		metric.WithDescription("Raw records returned by upstream providers"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_records_total counter: %w", err)
	}

	m.recordsNormalizedTotal, err = meter.Int64Counter(
		"records_normalized_total",
		metric.WithDescription("Records normalized per pipeline"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create records_normalized_total counter: %w", err)
	}

	m.storeOperationsTotal, err = meter.Int64Counter(
		"store_operations_total",
		metric.WithDescription("Total number of sink inserts"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_operations_total counter: %w", err)
	}

	m.storeOperationDuration, err = meter.Float64Histogram(
		"store_operation_duration_seconds",
		metric.WithDescription("Sink insert duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store_operation_duration_seconds histogram: %w", err)
	}

	m.enrichmentTotal, err = meter.Int64Counter(
		"enrichment_total",
		metric.WithDescription("Enrichment attempts by result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrichment_total counter: %w", err)
	}

	m.pipelineRunsTotal, err = meter.Int64Counter(
		"pipeline_runs_total",
		metric.WithDescription("Pipeline runs by final state"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_runs_total counter: %w", err)
	}

	m.pipelineRunDuration, err = meter.Float64Histogram(
		"pipeline_run_duration_seconds",
		metric.WithDescription("Pipeline run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_run_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordUpstreamFetch records one descriptor attempt.
//
// Parameters:
//   - provider: descriptor name (gmail_search, newsapi, feeds, ...)
//   - status: "success" or "error"
//   - records: number of raw records returned
//   - duration: time taken by the fetch
func (m *Metrics) RecordUpstreamFetch(ctx context.Context, provider, status string, records int, duration time.Duration) {
	if m == nil || m.upstreamFetchTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrStatus, status),
	)
	m.upstreamFetchTotal.Add(ctx, 1, attrs)
	m.upstreamFetchDuration.Record(ctx, duration.Seconds(), attrs)
	if records > 0 {
		m.upstreamRecords.Add(ctx, int64(records), metric.WithAttributes(attribute.String(attrProvider, provider)))
	}
}

// RecordNormalized adds n normalized records for a pipeline.
func (m *Metrics) RecordNormalized(ctx context.Context, pipeline string, n int) {
	if m == nil || m.recordsNormalizedTotal == nil {
		return
	}
	m.recordsNormalizedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrPipeline, pipeline)))
}

// RecordStore records one sink insert.
func (m *Metrics) RecordStore(ctx context.Context, table, status string, duration time.Duration) {
	if m == nil || m.storeOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTable, table),
		attribute.String(attrStatus, status),
	)
	m.storeOperationsTotal.Add(ctx, 1, attrs)
	m.storeOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordEnrichment records whether generated text or the fallback was used.
// Result should be one of: "generated", "fallback"
func (m *Metrics) RecordEnrichment(ctx context.Context, result string) {
	if m == nil || m.enrichmentTotal == nil {
		return
	}
	m.enrichmentTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordPipelineRun records a finished run and its final state.
func (m *Metrics) RecordPipelineRun(ctx context.Context, pipeline, state string, duration time.Duration) {
	if m == nil || m.pipelineRunsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrPipeline, pipeline),
		attribute.String(attrState, state),
	)
	m.pipelineRunsTotal.Add(ctx, 1, attrs)
	m.pipelineRunDuration.Record(ctx, duration.Seconds(), attrs)
}
