package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ingestly/ingestly/internal/config"
	"github.com/ingestly/ingestly/internal/errreport"
	"github.com/ingestly/ingestly/internal/instrumentation"
	"github.com/ingestly/ingestly/internal/logging"
	"github.com/ingestly/ingestly/internal/pipeline"
	"github.com/ingestly/ingestly/internal/sink"
)

// runtime is everything a pipeline command needs, built once per process.
type runtime struct {
	cfg          config.Config
	logger       *slog.Logger
	provider     *instrumentation.Provider
	reporter     *errreport.Reporter
	sink         sink.Sink
	memory       *sink.Memory
	orchestrator *pipeline.Orchestrator
}

// loadConfig reads and validates the configuration for kind. Nothing else
// happens before this succeeds.
func loadConfig(kind config.Kind, f rootFlags, envFileSet bool) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigFile:     f.configFile,
		EnvFile:        f.envFile,
		RequireEnvFile: envFileSet,
	})
	if err != nil {
		return config.Config{}, err
	}
	if f.dryRun {
		cfg = cfg.WithSinkBackend(config.BackendMemory)
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.ValidateFor(kind); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func sinkSettings(cfg config.Config, kind config.Kind) sink.Settings {
	s := cfg.Sink.For(kind)
	return sink.Settings{
		Backend:          s.Backend,
		SupabaseURL:      s.SupabaseURL,
		SupabaseKey:      s.SupabaseKey,
		DatabaseURL:      s.DatabaseURL,
		SQLitePath:       s.SQLitePath,
		FirestoreProject: s.FirestoreProject,
		Timeout:          cfg.RequestTimeout,
	}
}

func instrumentationConfig(cfg config.Config) instrumentation.Config {
	ic := instrumentation.DefaultConfig()
	ic.ServiceVersion = version
	if cfg.Metrics.PushgatewayURL != "" {
		ic.PushgatewayURL = cfg.Metrics.PushgatewayURL
	}
	if cfg.Metrics.PushJob != "" {
		ic.PushJob = cfg.Metrics.PushJob
	}
	return ic
}

func bootstrap(ctx context.Context, cfg config.Config, kind config.Kind) (*runtime, error) {
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ic := instrumentationConfig(cfg)
	provider, err := instrumentation.NewProvider(ctx, ic)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	reporter, err := errreport.New(errreport.Config{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     "ingestly@" + version,
	}, logger)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	snk, err := sink.Open(ctx, sinkSettings(cfg, kind))
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open %s sink: %w", cfg.Sink.Backend, err)
	}
	mem, _ := snk.(*sink.Memory)

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		reporter: reporter,
		sink:     snk,
		memory:   mem,
	}
	rt.orchestrator = pipeline.NewOrchestrator(snk,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(provider.Metrics()),
		pipeline.WithReporter(reporter),
		pipeline.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, ic.AuditLogging)),
	)
	return rt, nil
}

// close pushes metrics for the run and releases every resource.
func (rt *runtime) close(ctx context.Context, pipelineName string) error {
	var errs []error
	if err := rt.provider.Push(ctx, pipelineName); err != nil {
		rt.logger.Warn("metrics push failed", logging.Err(err))
	}
	if err := rt.sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sink: %w", err))
	}
	rt.reporter.Flush(errreport.DefaultFlushTimeout)
	if err := rt.provider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown instrumentation: %w", err))
	}
	return errors.Join(errs...)
}

// finish prints the run summary and, on a dry run, every stored row.
func (rt *runtime) finish(w io.Writer, out pipeline.Outcome) error {
	printOutcome(w, out)
	if rt.memory != nil && flags.dryRun {
		return writeRows(w, rt.memory)
	}
	return nil
}

// abort reports a failure that happened before the pipeline could run and
// prints the same failure line a failed run would.
func (rt *runtime) abort(w io.Writer, pipelineName string, err error) error {
	rt.logger.Error("pipeline setup failed", logging.Pipeline(pipelineName), logging.Err(err))
	rt.reporter.ReportFailure(err, map[string]string{
		logging.KeyPipeline: pipelineName,
		logging.KeyStep:     "setup",
	})
	printOutcome(w, pipeline.Outcome{Summary: fmt.Sprintf("%s failed at setup step: %v", pipelineName, err)})
	return err
}

func printOutcome(w io.Writer, out pipeline.Outcome) {
	if out.Success {
		fmt.Fprintln(w, out.Summary)
		return
	}
	fmt.Fprintf(w, "Pipeline failed: %s\n", out.Summary)
}

// writeRows prints the rows of every table as one indented JSON document.
func writeRows(w io.Writer, mem *sink.Memory) error {
	dump := make(map[string][]pipeline.Row)
	for _, table := range mem.Tables() {
		dump[table] = mem.Rows(table)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}
