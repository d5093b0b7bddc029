// Package instrumentation provides OpenTelemetry metrics and tracing for
// ingestly pipeline runs.
//
// A run is a short-lived process, so metrics are collected into a private
// Prometheus registry and pushed to a Pushgateway once the run finishes.
// OTLP and stdout exporters are available for local debugging.
//
// # Metrics
//
//   - upstream_fetch_total: fetch attempts by provider and status
//   - upstream_fetch_duration_seconds: fetch latency by provider and status
//   - upstream_records_total: raw records returned by provider
//   - records_normalized_total: records normalized by pipeline
//   - store_operations_total: sink inserts by table and status
//   - store_operation_duration_seconds: sink insert latency
//   - enrichment_total: enrichment attempts by result (generated, fallback)
//   - pipeline_runs_total: finished runs by pipeline and final state
//   - pipeline_run_duration_seconds: run latency by pipeline and final state
//
// # Tracing
//
// Each run opens a pipeline.<name> span with fetch.<provider> and
// store.<table> children.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - PUSHGATEWAY_URL: Pushgateway base URL (default: unset, no push)
//   - PUSHGATEWAY_JOB: Pushgateway job label (default: ingestly)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordPipelineRun(ctx, "email_pipeline", "done", time.Since(start))
//	if err := provider.Push(ctx, "email_pipeline"); err != nil {
//		logger.Warn("metrics push failed", logging.Err(err))
//	}
package instrumentation
