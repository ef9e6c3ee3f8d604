// Package costfn turns estimation into cost functions for classical optimizers.
package costfn

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jaskrrish/Go-VQA/internal/vqa/ansatz"
	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// TaskFactory produces the estimation tasks for one parameter vector
type TaskFactory func(params []float64) ([]estimation.Task, error)

// SubstitutionBasedTaskFactory binds params into the ansatz, pairs the circuit with
// the hamiltonian and runs the preprocessors over the resulting task
func SubstitutionBasedTaskFactory(hamiltonian quantum.PauliSum, a ansatz.Ansatz, preprocessors ...estimation.Preprocessor) TaskFactory {
	return func(params []float64) ([]estimation.Task, error) {
		circuit, err := a.Circuit(params)
		if err != nil {
			return nil, err
		}
		tasks := []estimation.Task{estimation.NewTask(hamiltonian, circuit)}
		return estimation.ApplyPreprocessors(tasks, preprocessors...)
	}
}

// CostFunction evaluates the total expectation value of the tasks a factory produces
type CostFunction struct {
	backend quantum.Backend
	factory TaskFactory
	method  estimation.Method
	logger  *slog.Logger
}

// Option configures a CostFunction
type Option func(*CostFunction)

// WithLogger sets the logger used for evaluation failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *CostFunction) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a cost function. A nil method uses estimation.Estimate.
func New(backend quantum.Backend, factory TaskFactory, method estimation.Method, opts ...Option) *CostFunction {
	if method == nil {
		method = estimation.MethodFunc(estimation.Estimate)
	}
	c := &CostFunction{
		backend: backend,
		factory: factory,
		method:  method,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Evaluate returns the sum of all expectation values estimated for params
func (c *CostFunction) Evaluate(ctx context.Context, params []float64) (float64, error) {
	tasks, err := c.factory(params)
	if err != nil {
		return 0, fmt.Errorf("building estimation tasks: %w", err)
	}

	results, err := c.method.Estimate(ctx, c.backend, tasks)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, r := range results {
		total += r.Sum()
	}
	return total, nil
}

// Func adapts the cost function for optimizers that cannot handle errors.
// A failed evaluation is logged and reported as +Inf, marking the point unevaluable.
func (c *CostFunction) Func(ctx context.Context) func([]float64) float64 {
	return func(params []float64) float64 {
		value, err := c.Evaluate(ctx, params)
		if err != nil {
			c.logger.Warn("cost function evaluation failed",
				slog.Int("params", len(params)),
				slog.String("error", err.Error()),
			)
			return math.Inf(1)
		}
		return value
	}
}
