package pipeline

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ingestly/ingestly/internal/instrumentation"
	"github.com/ingestly/ingestly/internal/logging"
)

// Descriptor is one way of fetching raw records: a named fetch function with
// its arguments already bound.
type Descriptor[T any] struct {
	Name  string
	Fetch func(ctx context.Context) ([]T, error)
}

// Plan is an ordered list of descriptors. Resolve evaluates it in order and
// stops at the first descriptor that yields at least one record.
type Plan[T any] []Descriptor[T]

// ResolveStatus tags the result of Resolve.
type ResolveStatus int

const (
	// ResolvedWithData means a descriptor returned at least one record.
	ResolvedWithData ResolveStatus = iota
	// ResolvedEmpty means at least one descriptor succeeded but none had records.
	ResolvedEmpty
	// Exhausted means every descriptor failed, or the plan was empty.
	Exhausted
)

func (s ResolveStatus) String() string {
	switch s {
	case ResolvedWithData:
		return "data"
	case ResolvedEmpty:
		return "empty"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Attempt records what one descriptor did during Resolve.
type Attempt struct {
	Provider string
	Records  int
	Duration time.Duration
	Err      error
}

// Resolution is the outcome of Resolve. Records is never nil.
type Resolution[T any] struct {
	Status   ResolveStatus
	Provider string
	Records  []T
	Attempts []Attempt
}

// Resolve runs the plan strictly in order. A failing descriptor is logged and
// skipped; a descriptor returning zero records is treated the same way for
// fallback purposes. Running out of descriptors is not an error: the
// resolution simply carries no records.
func Resolve[T any](ctx context.Context, plan Plan[T], logger logging.Logger) Resolution[T] {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	res := Resolution[T]{Status: Exhausted, Records: []T{}}
	succeeded := false

	for i, d := range plan {
		if err := ctx.Err(); err != nil {
			logger.Warn("fallback plan interrupted",
				logging.KeyProvider, d.Name,
				"remaining", len(plan)-i,
				logging.KeyError, err.Error())
			break
		}

		records, attempt := runDescriptor(ctx, d)
		res.Attempts = append(res.Attempts, attempt)

		if attempt.Err != nil {
			logger.Warn("provider failed, trying next",
				logging.KeyProvider, d.Name,
				logging.KeyError, attempt.Err.Error())
			continue
		}

		succeeded = true
		if len(records) == 0 {
			logger.Info("provider returned no records, trying next",
				logging.KeyProvider, d.Name)
			continue
		}

		logger.Info("provider returned records",
			logging.KeyProvider, d.Name,
			"count", len(records))
		res.Status = ResolvedWithData
		res.Provider = d.Name
		res.Records = records
		return res
	}

	if succeeded {
		res.Status = ResolvedEmpty
	}
	return res
}

func runDescriptor[T any](ctx context.Context, d Descriptor[T]) ([]T, Attempt) {
	ctx, span := instrumentation.StartFetchSpan(ctx, d.Name)
	defer span.End()

	start := time.Now()
	attempt := Attempt{Provider: d.Name}

	if d.Fetch == nil {
		attempt.Err = &UpstreamError{Provider: d.Name, Err: errors.New("descriptor has no fetch function")}
		instrumentation.SetSpanError(span, attempt.Err)
		return nil, attempt
	}

	records, err := d.Fetch(ctx)
	attempt.Duration = time.Since(start)
	if err != nil {
		attempt.Err = NewUpstreamError(d.Name, 0, err)
		instrumentation.SetSpanError(span, attempt.Err)
		return nil, attempt
	}

	attempt.Records = len(records)
	instrumentation.AddSpanEvent(span, "fetched", attribute.Int(instrumentation.SpanAttrRecords, len(records)))
	instrumentation.SetSpanSuccess(span)
	return records, attempt
}
