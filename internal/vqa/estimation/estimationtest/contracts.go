// Package estimationtest holds checks that any estimation.Method must pass.
package estimationtest

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/Go-VQA/internal/vqa/estimation"
	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

const tolerance = 1e-9

// Contract is one property of an estimation method
type Contract struct {
	Name  string
	Check func(ctx context.Context, method estimation.Method, backend quantum.Backend, tasks []estimation.Task) error
}

// Contracts lists every property checked by Verify
var Contracts = []Contract{
	{Name: "returns one result per task", Check: checkLength},
	{Name: "empty input gives empty output", Check: checkEmpty},
	{Name: "results follow task order", Check: checkOrder},
	{Name: "exact tasks are deterministic", Check: checkDeterministic},
}

// Verify runs every contract as a subtest.
// The contracts compare results with the input tasks one to one, so method must
// not carry preprocessors that change the number or order of tasks, such as grouping.
func Verify(t *testing.T, method estimation.Method, backend quantum.Backend, tasks []estimation.Task) {
	t.Helper()
	for _, c := range Contracts {
		t.Run(c.Name, func(t *testing.T) {
			require.NoError(t, c.Check(context.Background(), method, backend, tasks))
		})
	}
}

func checkLength(ctx context.Context, method estimation.Method, backend quantum.Backend, tasks []estimation.Task) error {
	results, err := method.Estimate(ctx, backend, tasks)
	if err != nil {
		return err
	}
	if len(results) != len(tasks) {
		return fmt.Errorf("got %d results for %d tasks", len(results), len(tasks))
	}
	return nil
}

func checkEmpty(ctx context.Context, method estimation.Method, backend quantum.Backend, _ []estimation.Task) error {
	results, err := method.Estimate(ctx, backend, nil)
	if err != nil {
		return err
	}
	if len(results) != 0 {
		return fmt.Errorf("got %d results for no tasks", len(results))
	}
	return nil
}

// checkOrder estimates the tasks forwards and backwards. Exact results must match
// value for value; sampled results only in shape, since they carry shot noise.
func checkOrder(ctx context.Context, method estimation.Method, backend quantum.Backend, tasks []estimation.Task) error {
	forward, err := method.Estimate(ctx, backend, tasks)
	if err != nil {
		return err
	}

	reversedTasks := make([]estimation.Task, len(tasks))
	for i, task := range tasks {
		reversedTasks[len(tasks)-1-i] = task
	}
	backward, err := method.Estimate(ctx, backend, reversedTasks)
	if err != nil {
		return err
	}
	if len(forward) != len(tasks) || len(backward) != len(tasks) {
		return fmt.Errorf("got %d and %d results for %d tasks", len(forward), len(backward), len(tasks))
	}

	for i, task := range tasks {
		a, b := forward[i], backward[len(tasks)-1-i]
		if len(a.Values) != len(b.Values) {
			return fmt.Errorf("task %d: %d values forwards, %d backwards", i, len(a.Values), len(b.Values))
		}
		if _, sampled := task.NumberOfShots(); sampled {
			continue
		}
		if err := sameValues(a, b); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	return nil
}

func checkDeterministic(ctx context.Context, method estimation.Method, backend quantum.Backend, tasks []estimation.Task) error {
	var exact []estimation.Task
	for _, task := range tasks {
		if _, sampled := task.NumberOfShots(); !sampled {
			exact = append(exact, task)
		}
	}

	first, err := method.Estimate(ctx, backend, exact)
	if err != nil {
		return err
	}
	second, err := method.Estimate(ctx, backend, exact)
	if err != nil {
		return err
	}
	for i := range first {
		if err := sameValues(first[i], second[i]); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
	}
	return nil
}

func sameValues(a, b quantum.ExpectationValues) error {
	if len(a.Values) != len(b.Values) {
		return fmt.Errorf("%d values vs %d values", len(a.Values), len(b.Values))
	}
	for j := range a.Values {
		if math.Abs(a.Values[j]-b.Values[j]) > tolerance {
			return fmt.Errorf("value %d differs: %g vs %g", j, a.Values[j], b.Values[j])
		}
	}
	return nil
}
