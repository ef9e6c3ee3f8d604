package estimation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// Method is any way of turning estimation tasks into expectation values
type Method interface {
	Estimate(ctx context.Context, backend quantum.Backend, tasks []Task) ([]quantum.ExpectationValues, error)
}

// MethodFunc adapts a function to the Method interface
type MethodFunc func(ctx context.Context, backend quantum.Backend, tasks []Task) ([]quantum.ExpectationValues, error)

// Estimate calls f
func (f MethodFunc) Estimate(ctx context.Context, backend quantum.Backend, tasks []Task) ([]quantum.ExpectationValues, error) {
	return f(ctx, backend, tasks)
}

// Estimator computes expectation values, sampling tasks that have shots and
// evaluating the rest exactly. It keeps no state between calls and is safe for
// concurrent use as long as the backend is.
type Estimator struct {
	preprocessors []Preprocessor
	logger        *slog.Logger
	tracer        trace.Tracer
}

// Option configures an Estimator
type Option func(*Estimator)

// WithPreprocessors sets the preprocessors applied to every task list before estimation
func WithPreprocessors(preprocessors ...Preprocessor) Option {
	return func(e *Estimator) {
		e.preprocessors = append([]Preprocessor(nil), preprocessors...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Estimator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for estimation spans
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Estimator) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// NewEstimator creates an estimator
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{
		logger: slog.Default(),
		tracer: otel.Tracer("go-vqa.estimation"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// With returns a copy of e with opts applied
func (e *Estimator) With(opts ...Option) *Estimator {
	c := *e
	c.preprocessors = append([]Preprocessor(nil), e.preprocessors...)
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

var defaultEstimator = NewEstimator()

// Estimate evaluates tasks on backend with a default Estimator
func Estimate(ctx context.Context, backend quantum.Backend, tasks []Task) ([]quantum.ExpectationValues, error) {
	return defaultEstimator.Estimate(ctx, backend, tasks)
}

// Estimate returns one result per task after preprocessing, in task order.
// Backend capabilities are checked before any backend call. Any failure fails the
// whole call; backend errors are returned unchanged.
func (e *Estimator) Estimate(ctx context.Context, backend quantum.Backend, tasks []Task) ([]quantum.ExpectationValues, error) {
	ctx, span := e.tracer.Start(ctx, "estimation.Estimate",
		trace.WithAttributes(
			attribute.String("backend", backendName(backend)),
			attribute.Int("tasks.requested", len(tasks)),
		),
	)
	defer span.End()

	results, err := e.estimate(ctx, span, backend, tasks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return results, nil
}

func (e *Estimator) estimate(ctx context.Context, span trace.Span, backend quantum.Backend, tasks []Task) ([]quantum.ExpectationValues, error) {
	start := time.Now()

	tasks, err := ApplyPreprocessors(tasks, e.preprocessors...)
	if err != nil {
		return nil, err
	}
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
	}

	partition := Split(tasks)
	span.SetAttributes(
		attribute.Int("tasks.sampled", len(partition.ToMeasure)),
		attribute.Int("tasks.exact", len(partition.NotToMeasure)),
	)

	sim, runner, err := resolveCapabilities(backend, partition)
	if err != nil {
		return nil, err
	}

	exact, err := EvaluateExact(ctx, sim, partition.NotToMeasure)
	if err != nil {
		return nil, err
	}
	sampled, err := EvaluateSampled(ctx, runner, partition.ToMeasure)
	if err != nil {
		return nil, err
	}

	results := Merge(exact, partition.ExactIndices, sampled, partition.MeasureIndices, len(tasks))

	e.logger.Debug("estimation completed",
		slog.String("backend", backendName(backend)),
		slog.Int("tasks", len(tasks)),
		slog.Int("sampled", len(partition.ToMeasure)),
		slog.Int("exact", len(partition.NotToMeasure)),
		slog.Duration("duration", time.Since(start)),
	)
	return results, nil
}

// resolveCapabilities finds the exact simulator and batch runner the partition needs.
// A nil return means the capability is not needed.
func resolveCapabilities(backend quantum.Backend, partition Partition) (quantum.ExactEvaluable, quantum.BatchSampleable, error) {
	var (
		sim    quantum.ExactEvaluable
		runner quantum.BatchSampleable
	)

	if needsSimulator(partition.NotToMeasure) {
		s, ok := backend.(quantum.ExactEvaluable)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s cannot evaluate expectation values exactly; give every task a number of shots",
				ErrCapabilityNotSupported, backendName(backend))
		}
		sim = s
	}

	if len(partition.ToMeasure) > 0 {
		r, ok := backend.(quantum.BatchSampleable)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s cannot sample circuits; remove the number of shots from the tasks",
				ErrCapabilityNotSupported, backendName(backend))
		}
		runner = r
	}

	return sim, runner, nil
}

func needsSimulator(tasks []Task) bool {
	for _, task := range tasks {
		if !task.operator.IsConstant() {
			return true
		}
	}
	return false
}

func backendName(backend quantum.Backend) string {
	if backend == nil {
		return "<nil backend>"
	}
	return backend.Name()
}
