package estimation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jaskrrish/Go-VQA/internal/vqa/quantum"
)

// ErrInvalidAlpha is returned when the CVaR fraction is outside (0, 1]
var ErrInvalidAlpha = errors.New("alpha must be in (0, 1]")

// CvarEstimator estimates the conditional value at risk of a diagonal operator:
// the mean energy of the lowest Alpha fraction of the outcome distribution.
// Each task yields a single value. Alpha = 1 gives the ordinary expectation value.
type CvarEstimator struct {
	Alpha float64
}

// Estimate computes one CVaR value per task. Tasks with shots are sampled in one
// batch; the others use the backend's exact bitstring distribution.
func (c CvarEstimator) Estimate(ctx context.Context, backend quantum.Backend, tasks []Task) ([]quantum.ExpectationValues, error) {
	if !(c.Alpha > 0 && c.Alpha <= 1) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidAlpha, c.Alpha)
	}
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		if !task.operator.IsDiagonal() {
			return nil, fmt.Errorf("task %d: %w: %s", i, quantum.ErrNonDiagonalOperator, task.operator)
		}
	}

	partition := Split(tasks)

	var dist quantum.DistributionEvaluable
	if needsSimulator(partition.NotToMeasure) {
		d, ok := backend.(quantum.DistributionEvaluable)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot compute exact bitstring distributions", ErrCapabilityNotSupported, backendName(backend))
		}
		dist = d
	}
	var runner quantum.BatchSampleable
	if len(partition.ToMeasure) > 0 {
		r, ok := backend.(quantum.BatchSampleable)
		if !ok {
			return nil, fmt.Errorf("%w: %s cannot sample circuits", ErrCapabilityNotSupported, backendName(backend))
		}
		runner = r
	}

	exact := make([]quantum.ExpectationValues, len(partition.NotToMeasure))
	for i, task := range partition.NotToMeasure {
		if task.operator.IsConstant() {
			exact[i] = quantum.ExpectationValues{Values: []float64{real(task.operator.ConstantPart())}}
			continue
		}
		probabilities, err := dist.BitstringDistribution(ctx, task.circuit)
		if err != nil {
			return nil, err
		}
		exact[i] = quantum.ExpectationValues{Values: []float64{cvar(probabilities, task.operator, c.Alpha)}}
	}

	sampled, err := c.sample(ctx, runner, partition.ToMeasure)
	if err != nil {
		return nil, err
	}

	return Merge(exact, partition.ExactIndices, sampled, partition.MeasureIndices, len(tasks)), nil
}

func (c CvarEstimator) sample(ctx context.Context, runner quantum.BatchSampleable, tasks []Task) ([]quantum.ExpectationValues, error) {
	if len(tasks) == 0 {
		return []quantum.ExpectationValues{}, nil
	}

	circuits := make([]*quantum.Circuit, len(tasks))
	shots := make([]int, len(tasks))
	for i, task := range tasks {
		circuits[i] = task.circuit
		shots[i], _ = task.NumberOfShots()
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
		if m == nil || m.Shots() == 0 {
			return nil, fmt.Errorf("%w: %s returned no samples for circuit %d", ErrContractViolation, runner.Name(), i)
		}
		results[i] = quantum.ExpectationValues{Values: []float64{cvar(m.Distribution(), tasks[i].operator, c.Alpha)}}
	}
	return results, nil
}

// cvar averages the energies of the lowest-energy outcomes holding alpha of the
// probability mass, taking a fraction of the boundary outcome when needed
func cvar(probabilities map[string]float64, op quantum.PauliSum, alpha float64) float64 {
	type outcome struct {
		energy      float64
		probability float64
	}
	outcomes := make([]outcome, 0, len(probabilities))
	for bitstring, p := range probabilities {
		outcomes = append(outcomes, outcome{energy: quantum.Energy(bitstring, op), probability: p})
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].energy < outcomes[j].energy
	})

	var mass, total float64
	for _, o := range outcomes {
		take := o.probability
		if mass+take > alpha {
			take = alpha - mass
		}
		total += take * o.energy
		mass += take
		if mass >= alpha {
			break
		}
	}
	if mass == 0 {
		return 0
	}
	return total / mass
}
