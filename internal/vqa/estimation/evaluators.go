package estimation

import (
	"context"
	"fmt"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// EvaluateExact computes the expectation values of tasks one simulator call at a time.
// Tasks with constant operators are answered without calling sim, so sim may be nil
// when every task is constant. Simulator errors are returned as they are.
func EvaluateExact(ctx context.Context, sim quantum.ExactEvaluable, tasks []Task) ([]quantum.ExpectationValues, error) {
	results := make([]quantum.ExpectationValues, len(tasks))
	for i, task := range tasks {
		if task.operator.IsConstant() {
			results[i] = quantum.ConstantExpectationValues(task.operator)
			continue
		}
		if sim == nil {
			return nil, fmt.Errorf("%w: exact evaluation of %s needs an exact simulator", ErrCapabilityNotSupported, task)
		}
		values, err := sim.ExactExpectationValues(ctx, task.circuit, task.operator)
		if err != nil {
			return nil, err
		}
		results[i] = values
	}
	return results, nil
}

// EvaluateSampled submits every task's circuit to runner in one batch and decodes
// the returned samples against each task's operator. An empty task list returns
// an empty result without calling runner. Runner errors are returned as they are.
func EvaluateSampled(ctx context.Context, runner quantum.BatchSampleable, tasks []Task) ([]quantum.ExpectationValues, error) {
	if len(tasks) == 0 {
		return []quantum.ExpectationValues{}, nil
	}

	circuits := make([]*quantum.Circuit, len(tasks))
	shots := make([]int, len(tasks))
	for i, task := range tasks {
		n, ok := task.NumberOfShots()
		if !ok || n < 1 {
			return nil, fmt.Errorf("%w: %s cannot be sampled", ErrInvalidTask, task)
		}
		circuits[i] = task.circuit
		shots[i] = n
	}

	measurements, err := runner.RunBatchAndMeasure(ctx, circuits, shots)
	if err != nil {
		return nil, err
	}
	if len(measurements) != len(tasks) {
		return nil, fmt.Errorf("%w: %s returned %d measurement sets for %d circuits",
			ErrContractViolation, runner.Name(), len(measurements), len(tasks))
	}

	results := make([]quantum.ExpectationValues, len(tasks))
	for i, m := range measurements {
		if m == nil {
			return nil, fmt.Errorf("%w: %s returned no measurements for circuit %d", ErrContractViolation, runner.Name(), i)
		}
		values, err := m.ExpectationValues(tasks[i].operator)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		results[i] = values
	}
	return results, nil
}
