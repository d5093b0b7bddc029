package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ingestly/ingestly/internal/instrumentation"
	"github.com/ingestly/ingestly/internal/logging"
)

// State is a position in the run state machine.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateEnriching   State = "enriching"
	StateStoring     State = "storing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

var validTransitions = map[State][]State{
	StateIdle:        {StateFetching},
	StateFetching:    {StateNormalizing, StateDone, StateFailed},
	StateNormalizing: {StateEnriching, StateStoring, StateFailed},
	StateEnriching:   {StateStoring, StateFailed},
	StateStoring:     {StateDone, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Enrichment is the derived text for a batch. OK is false when Text is the
// static fallback.
type Enrichment struct {
	Text string
	OK   bool
}

// Enricher derives one text artifact from a normalized batch. It must not
// fail: service errors are absorbed into a fallback Enrichment.
type Enricher interface {
	Enrich(ctx context.Context, records []Record) Enrichment
}

// ErrorReporter forwards failed runs to an external error tracker.
type ErrorReporter interface {
	ReportFailure(err error, tags map[string]string)
}

// DefaultOutcomeColumn holds the structured payload of outcome rows when a
// job does not name its own column.
const DefaultOutcomeColumn = "payload"

// Job binds a fallback plan and a normalizer to a persistence layout.
type Job[T any] struct {
	// Name is the outcome row source, e.g. "indian_news_pipeline".
	Name string
	// Label is stamped on every record as PipelineLabel.
	Label string
	// Noun names the records in summaries ("emails", "articles").
	Noun string

	Plan      Plan[T]
	Normalize func(raw T, nctx NormalizeContext) (Record, error)

	// RecordTable, when set, receives one row per record via RecordRow.
	RecordTable string
	RecordRow   func(Record) Row

	// Enricher is optional.
	Enricher Enricher

	// OutcomeTable receives the success payload (when OutcomePayload is
	// set) and the error artifact of a failed run.
	OutcomeTable   string
	OutcomeColumn  string
	OutcomePayload func(EnrichedPayload) map[string]any
}

// Outcome is what a run reports to its caller.
type Outcome struct {
	RunID         string
	Pipeline      string
	State         State
	Success       bool
	Summary       string
	Provider      string
	Resolve       ResolveStatus
	Fetched       int
	Stored        int
	StoreFailures int
	GeneratedText string
	Enriched      bool
	Transitions   []State
	Err           error
}

// Orchestrator runs jobs against one sink.
type Orchestrator struct {
	sink     Sink
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	reporter ErrorReporter
	audit    *instrumentation.AuditLogger
	now      func() time.Time
	newRunID func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithReporter sets the error reporter used for failed runs.
func WithReporter(r ErrorReporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithAuditLogger sets the logger that receives one entry per finished run.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(o *Orchestrator) { o.audit = al }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunIDFunc overrides run identifier generation.
func WithRunIDFunc(fn func() string) Option {
	return func(o *Orchestrator) { o.newRunID = fn }
}

// NewOrchestrator creates an Orchestrator writing to sink.
func NewOrchestrator(sink Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   slog.Default(),
		now:      time.Now,
		newRunID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.audit == nil {
		o.audit = instrumentation.NewAuditLogger(o.logger)
	}
	o.sink = &instrumentedSink{next: sink, metrics: o.metrics}
	return o
}

type run struct {
	id          string
	name        string
	logger      *slog.Logger
	state       State
	transitions []State
	start       time.Time
	audit       *instrumentation.RunAudit
}

func (r *run) enter(s State) {
	if !canTransition(r.state, s) {
		panic(fmt.Sprintf("pipeline: invalid transition %s -> %s", r.state, s))
	}
	r.state = s
	r.transitions = append(r.transitions, s)
	r.logger.Info("pipeline state changed", logging.Step(string(s)))
}

// Run drives job through one pass of the state machine. A run that finds
// nothing to fetch ends in Done. A failure while normalizing or storing ends
// in Failed: an error artifact is written to the job's outcome table on a
// best-effort basis and the failure is returned.
func Run[T any](ctx context.Context, o *Orchestrator, job Job[T]) (Outcome, error) {
	id := o.newRunID()
	r := &run{
		id:          id,
		name:        job.Name,
		state:       StateIdle,
		transitions: []State{StateIdle},
		start:       o.now(),
		audit:       instrumentation.NewRunAudit(job.Name, id),
	}
	r.logger = logging.WithRunID(logging.WithPipeline(o.logger, job.Name), id)

	ctx, span := instrumentation.StartRunSpan(ctx, job.Name, id)
	defer span.End()
	r.audit.WithSpanContext(ctx)

	noun := job.Noun
	if noun == "" {
		noun = "records"
	}

	r.enter(StateFetching)
	res := Resolve(ctx, job.Plan, logging.NewSlogAdapter(r.logger))
	for _, a := range res.Attempts {
		status := instrumentation.StatusSuccess
		if a.Err != nil {
			status = instrumentation.StatusError
		}
		o.metrics.RecordUpstreamFetch(ctx, a.Provider, status, a.Records, a.Duration)
	}

	out := Outcome{
		RunID:    r.id,
		Pipeline: job.Name,
		Provider: res.Provider,
		Resolve:  res.Status,
		Fetched:  len(res.Records),
	}

	if len(res.Records) == 0 {
		r.enter(StateDone)
		out.Success = true
		out.Summary = fmt.Sprintf("No new %s found, nothing to process", noun)
		if res.Status == Exhausted && len(res.Attempts) > 0 {
			out.Summary += " (all providers failed)"
		}
		return o.finish(ctx, r, out), nil
	}

	r.enter(StateNormalizing)
	nctx := NormalizeContext{PipelineLabel: job.Label, Now: o.now()}
	records := make([]Record, 0, len(res.Records))
	for _, raw := range res.Records {
		rec, err := job.Normalize(raw, nctx)
		if err != nil {
			return o.fail(ctx, r, job.OutcomeTable, job.OutcomeColumn, out, StateNormalizing, err)
		}
		records = append(records, rec)
	}
	o.metrics.RecordNormalized(ctx, job.Name, len(records))

	var enrichment Enrichment
	if job.Enricher != nil {
		r.enter(StateEnriching)
		enrichment = job.Enricher.Enrich(ctx, records)
		out.GeneratedText = enrichment.Text
		out.Enriched = enrichment.OK
	}

	r.enter(StateStoring)
	if job.RecordTable != "" {
		results := StoreBatch(ctx, o.sink, job.RecordTable, records, job.RecordRow)
		for _, res := range results {
			if res.Err != nil {
				r.logger.Error("record insert failed",
					logging.Table(job.RecordTable), logging.RecordID(res.RecordID), logging.Err(res.Err))
			}
		}
		failed := FailedResults(results)
		out.StoreFailures = len(failed)
		if len(failed) == len(records) {
			return o.fail(ctx, r, job.OutcomeTable, job.OutcomeColumn, out, StateStoring,
				fmt.Errorf("all %d inserts into %s failed: %w", len(failed), job.RecordTable, errors.Join(failed...)))
		}
	}

	if job.OutcomePayload != nil {
		payload := EnrichedPayload{
			RunID:         r.id,
			Records:       records,
			GeneratedText: enrichment.Text,
			Status:        enrichment.OK,
			ProcessedAt:   FormatTimestamp(o.now()),
		}
		row := Row{"source": job.Name, "status": true}
		row[outcomeColumn(job.OutcomeColumn)] = job.OutcomePayload(payload)
		if err := StoreRecord(ctx, o.sink, job.OutcomeTable, r.id, row); err != nil {
			return o.fail(ctx, r, job.OutcomeTable, job.OutcomeColumn, out, StateStoring, err)
		}
	}

	r.enter(StateDone)
	out.Success = true
	out.Stored = len(records) - out.StoreFailures
	out.Summary = fmt.Sprintf("Successfully processed %d %s", out.Stored, noun)
	if out.StoreFailures > 0 {
		out.Summary += fmt.Sprintf(" (%d failed to store)", out.StoreFailures)
	}
	return o.finish(ctx, r, out), nil
}

func (o *Orchestrator) fail(ctx context.Context, r *run, table, column string, out Outcome, step State, err error) (Outcome, error) {
	r.enter(StateFailed)
	r.logger.Error("pipeline failed", logging.Step(string(step)), logging.Err(err))

	if o.reporter != nil {
		o.reporter.ReportFailure(err, map[string]string{
			logging.KeyPipeline: r.name,
			logging.KeyRunID:    r.id,
			logging.KeyStep:     string(step),
		})
	}

	if table != "" {
		row := Row{"source": r.name + "_error", "status": false}
		row[outcomeColumn(column)] = map[string]any{
			"error_message":   err.Error(),
			"error_timestamp": FormatTimestamp(o.now()),
			"pipeline_step":   string(step),
			"run_id":          r.id,
		}
		if storeErr := StoreRecord(ctx, o.sink, table, r.id, row); storeErr != nil {
			r.logger.Error("failed to record error artifact", logging.Table(table), logging.Err(storeErr))
		}
	}

	out.Err = err
	out.Summary = fmt.Sprintf("%s failed at %s step: %v", r.name, step, err)
	return o.finish(ctx, r, out), err
}

func (o *Orchestrator) finish(ctx context.Context, r *run, out Outcome) Outcome {
	out.State = r.state
	out.Transitions = r.transitions
	o.metrics.RecordPipelineRun(ctx, r.name, string(r.state), o.now().Sub(r.start))

	r.audit.Provider = out.Provider
	r.audit.Fetched = out.Fetched
	r.audit.Stored = out.Stored
	r.audit.StoreFailures = out.StoreFailures
	r.audit.Enriched = out.Enriched
	o.audit.LogRun(r.audit.Complete(string(r.state), out.Err))
	return out
}

func outcomeColumn(column string) string {
	if column == "" {
		return DefaultOutcomeColumn
	}
	return column
}

// instrumentedSink records a span and a metric sample per insert.
type instrumentedSink struct {
	next    Sink
	metrics *instrumentation.Metrics
}

func (s *instrumentedSink) Insert(ctx context.Context, table string, row Row) error {
	ctx, span := instrumentation.StartStoreSpan(ctx, table)
	defer span.End()

	start := time.Now()
	err := s.next.Insert(ctx, table, row)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	s.metrics.RecordStore(ctx, table, status, time.Since(start))
	return err
}
